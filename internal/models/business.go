package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Business is a licensed unit of operation. Its UUID is the key the remote
// mapping uses to scope a license, so it must never be regenerated.
type Business struct {
	ID      string `gorm:"column:id;primaryKey;size:36" json:"id"`
	OwnerID uint   `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Name    string `gorm:"column:name;size:255;not null" json:"name"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Business) TableName() string {
	return "businesses"
}

func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
