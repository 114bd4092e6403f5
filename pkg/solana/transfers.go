package solana

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/hatchlabs/devbox-middleware/pkg/payment"
)

// solDecimals is the number of decimal places in a lamport amount.
const solDecimals = 9

// ExtractTransfers pulls inbound transfers out of a parsed transaction:
// system-program SOL transfers and SPL token transferChecked instructions.
// Failed transactions yield nothing.
func ExtractTransfers(tx *Transaction) []payment.Transfer {
	if tx == nil || tx.Meta == nil || tx.Meta.Err != nil {
		return nil
	}
	if len(tx.Transaction.Signatures) == 0 {
		return nil
	}
	signature := tx.Transaction.Signatures[0]

	var transfers []payment.Transfer
	for _, inst := range tx.Transaction.Message.Instructions {
		if len(inst.Parsed) == 0 {
			continue
		}
		var parsed parsedInstruction
		if err := json.Unmarshal(inst.Parsed, &parsed); err != nil {
			continue
		}

		switch {
		case inst.Program == "system" && parsed.Type == "transfer":
			var info systemTransferInfo
			if err := json.Unmarshal(parsed.Info, &info); err != nil {
				continue
			}
			transfers = append(transfers, payment.Transfer{
				Signature:  signature,
				FromWallet: info.Source,
				ToWallet:   info.Destination,
				Amount:     decimal.New(int64(info.Lamports), -solDecimals),
				Slot:       tx.Slot,
			})

		// Plain spl-token "transfer" instructions are skipped: their parsed
		// info carries only a raw amount, no mint and no decimals, so the
		// value cannot be scaled or matched to an intent without a token
		// account lookup.
		case inst.Program == "spl-token" && parsed.Type == "transferChecked":
			var info tokenTransferInfo
			if err := json.Unmarshal(parsed.Info, &info); err != nil {
				continue
			}
			amount, err := decimal.NewFromString(info.TokenAmount.Amount)
			if err != nil {
				continue
			}
			transfers = append(transfers, payment.Transfer{
				Signature:  signature,
				FromWallet: info.Authority,
				ToWallet:   info.Destination,
				TokenMint:  info.Mint,
				Amount:     amount.Shift(-info.TokenAmount.Decimals),
				Slot:       tx.Slot,
			})
		}
	}
	return transfers
}
