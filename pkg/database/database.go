package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/zjoart/go-topup-wallet/pkg/logger"
)

var DB *gorm.DB

func Connect(dbUrl string) {
	var err error
	DB, err = gorm.Open(postgres.Open(dbUrl), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("Failed to connect to database", logger.WithError(err))
	}
	logger.Info("Connected to database")
}

// Migrate creates or alters the tables backing the given models.
func Migrate(db *gorm.DB, models ...interface{}) {
	if err := db.AutoMigrate(models...); err != nil {
		logger.Fatal("Failed to migrate database", logger.WithError(err))
	}
	logger.Info("Database schema up to date", logger.Fields{"models": len(models)})
}
