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
		log.Println("creating payment_settlements table...")
		if err := mghelper.CreateSchema(ctx, db, &paymentstore.SettlementDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &paymentstore.SettlementDao{}, "intent_id", "wallet")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping payment_settlements table...")
		return mghelper.DropTables(ctx, db, &paymentstore.SettlementDao{})
	})
}
