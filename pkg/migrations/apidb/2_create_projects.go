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
		log.Println("creating projects table...")
		if err := mghelper.CreateSchema(ctx, db, &projectstore.ProjectDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &projectstore.ProjectDao{}, "account_id", "sandbox_id"); err != nil {
			return err
		}
		// One project row per (sandbox, owner). NULL owners are exempt so
		// unowned rows can coexist until the admin fixup links them.
		if err := mghelper.CreateUniqueCompositeIndex(ctx, db, "projects", "sandbox_id", "account_id"); err != nil {
			return err
		}
		// Each dev port serves one project; concurrent creates racing for
		// the same port lose here and retry with the next free one.
		return mghelper.CreatePartialUniqueIndex(ctx, db, "projects", "dev_port", "dev_port IS NOT NULL")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping projects table...")
		return mghelper.DropTables(ctx, db, &projectstore.ProjectDao{})
	})
}
