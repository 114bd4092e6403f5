package apidb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/hatchlabs/devbox-middleware/pkg/paymentstore"
	mghelper "github.com/hatchlabs/devbox-middleware/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating payment_intents table...")
		if err := mghelper.CreateSchema(ctx, db, &paymentstore.IntentDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &paymentstore.IntentDao{},
			"account_id", "destination_wallet", "status")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping payment_intents table...")
		return mghelper.DropTables(ctx, db, &paymentstore.IntentDao{})
	})
}
