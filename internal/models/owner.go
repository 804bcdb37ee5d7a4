package models

import (
	"time"

	"gorm.io/gorm"
)

// Owner represents an account holder that licenses one or more businesses.
type Owner struct {
	ID       uint   `gorm:"column:id;primaryKey" json:"id"`
	Email    string `gorm:"column:email;uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"column:password;size:255;not null" json:"-"`
	FullName string `gorm:"column:full_name;size:255" json:"full_name"`

	// IsActive is flipped to false when the license guard suspends the
	// account after repeated tamper strikes. An inactive owner cannot
	// authenticate.
	IsActive bool `gorm:"column:is_active;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Owner) TableName() string {
	return "owners"
}
