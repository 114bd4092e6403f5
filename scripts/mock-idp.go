//go:build ignore

// mock-idp.go - Mock identity provider for local testing
//
// Usage:
//   go run scripts/mock-idp.go
//
// Serves a JWKS endpoint and issues RS256 tokens compatible with the API
// server's auth middleware. Point auth.jwks_url at
// http://localhost:8088/.well-known/jwks.json and auth.issuer at
// http://localhost:8088. Not for production use.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	port   = 8088
	issuer = "http://localhost:8088"
	keyID  = "local-dev-key"
)

var signingKey *rsa.PrivateKey

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func main() {
	var err error
	signingKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		log.Fatalf("generate signing key: %v", err)
	}

	http.HandleFunc("/.well-known/jwks.json", handleJWKS)
	http.HandleFunc("/oauth/token", handleToken)
	http.HandleFunc("/health", handleHealth)

	log.Printf("Mock identity provider starting on http://localhost:%d", port)
	log.Printf("GET  /.well-known/jwks.json - JWKS for token verification")
	log.Printf("POST /oauth/token           - Returns RS256-signed JWT")
	log.Fatal(http.ListenAndServe(":8088", nil))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func handleJWKS(w http.ResponseWriter, r *http.Request) {
	pub := signingKey.Public().(*rsa.PublicKey)
	jwks := map[string]interface{}{
		"keys": []map[string]string{
			{
				"kty": "RSA",
				"kid": keyID,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jwks)
}

func handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	subject := r.FormValue("subject")
	if subject == "" {
		subject = "local-user"
	}
	audience := r.FormValue("audience")
	if audience == "" {
		audience = "devbox-api"
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": issuer,
		"sub": subject,
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(24 * time.Hour).Unix(),
	}
	if wallet := r.FormValue("wallet_address"); wallet != "" {
		claims["wallet_address"] = wallet
	}
	if r.FormValue("role") == "admin" {
		claims["role"] = "admin"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	signed, err := token.SignedString(signingKey)
	if err != nil {
		http.Error(w, "Failed to sign token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   86400,
	})

	log.Printf("Issued token: sub=%s aud=%s admin=%v", subject, audience, r.FormValue("role") == "admin")
}
