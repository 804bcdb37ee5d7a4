package models

import "gorm.io/gorm"

// AutoMigrate runs schema migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Owner{},
		&Business{},
		&LicenseRecord{},
	)
}
