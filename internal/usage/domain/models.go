// Package domain contains metering count models and usage aggregation contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// UsageSample is one recorded usage count for a metering unit.
type UsageSample struct {
	Timestamp time.Time       `json:"timestamp"`
	Count     decimal.Decimal `json:"count"`
}

// MeteringCount stores the usage count of a tenant's metering unit at a
// timestamp. The (tenant, unit, timestamp) triple is unique.
type MeteringCount struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  string       `gorm:"type:text;not null;uniqueIndex:ux_metering_unit_counts_key,priority:1"`
	UnitName  string       `gorm:"type:text;not null;uniqueIndex:ux_metering_unit_counts_key,priority:2"`
	Timestamp time.Time    `gorm:"not null;uniqueIndex:ux_metering_unit_counts_key,priority:3"`
	Count     int64        `gorm:"not null;default:0"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (MeteringCount) TableName() string { return "metering_unit_counts" }

func (m MeteringCount) Sample() UsageSample {
	return UsageSample{Timestamp: m.Timestamp, Count: decimal.NewFromInt(m.Count)}
}
