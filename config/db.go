package config

import (
	"github.com/ArtLeinich/tuya-sensor-monitoring/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB is a global variable to hold the database connection
var DB *gorm.DB

// Connect opens the PostgreSQL connection and runs migrations.
// TranslateError is enabled so a unique index violation surfaces as
// gorm.ErrDuplicatedKey instead of a driver-specific error code.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.Reading{}); err != nil {
		return nil, err
	}
	DB = db
	return db, nil
}
