package models

import (
	"time"
)

// Fund is the fund catalog dimension.
// Natural key: isin (fixed width, may come back space padded). Surrogate key: fund_id, assigned by the store.
// Rows are created once and never updated or deleted.
type Fund struct {
	ID            int       `gorm:"column:fund_id;primaryKey;autoIncrement" json:"fund_id"`
	Isin          string    `gorm:"type:char(12);not null;uniqueIndex:uniq_dim_funds_isin" json:"isin"`
	FundName      string    `gorm:"size:255;not null" json:"fund_name"`
	InceptionDate time.Time `gorm:"type:date;not null" json:"inception_date"`
}

func (Fund) TableName() string { return "dim_funds" }
