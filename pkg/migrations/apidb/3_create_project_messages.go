package apidb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/hatchlabs/devbox-middleware/pkg/pgutil/migrations"
	"github.com/hatchlabs/devbox-middleware/pkg/projectstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating project_messages table...")
		if err := mghelper.CreateSchema(ctx, db, &projectstore.MessageDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &projectstore.MessageDao{}, "project_id"); err != nil {
			return err
		}
		return mghelper.CreateUniqueCompositeIndex(ctx, db, "project_messages", "project_id", "sequence_number")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping project_messages table...")
		return mghelper.DropTables(ctx, db, &projectstore.MessageDao{})
	})
}
