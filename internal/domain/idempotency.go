package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Idempotency represents a recorded result of a previously processed request,
// keyed by (scope, key). Replaying a forced sync with the same Idempotency-Key
// returns the stored response instead of running another batch.
type Idempotency struct {
	ID        string         `gorm:"type:TEXT NOT NULL;primaryKey"`
	Scope     string         `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_key,priority:1"`
	Key       string         `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_key,priority:2"`
	Status    int            `gorm:"type:INTEGER NOT NULL"`
	Response  datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time      `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
