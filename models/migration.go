package models

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateTable creates or updates the loader tables. The QC stored procedure is owned
// by the database team and is not created here.
func MigrateTable(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	if err := db.AutoMigrate(&Fund{}, &FactCost{}, &LoadRun{}); err != nil {
		return fmt.Errorf("migrate loader tables: %w", err)
	}
	return nil
}
