package db

import (
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&model.Region{},
		&model.Business{},
		&model.EditRequest{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB runs the migrations against an explicit handle.
func MigrateDB(gdb *gorm.DB) error {
	logger.Info("Running database migrations...")

	// Run migrations
	models := Models()
	if err := gdb.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	// listing queries order by (date_submitted, id)
	if err := gdb.Exec("CREATE INDEX IF NOT EXISTS idx_edit_requests_cursor ON edit_requests (date_submitted DESC, id DESC)").Error; err != nil {
		logger.Error("Failed to create cursor index", err)
		return err
	}

	logger.Info("Database migrations completed successfully", logger.Fields{
		"models_count": len(models),
	})
	return nil
}
