package store

import (
	"errors"

	"github.com/bizgrid/backend/internal/models"
	"gorm.io/gorm"
)

// OwnerStore wraps owner identity persistence.
type OwnerStore struct {
	db *gorm.DB
}

func NewOwnerStore(db *gorm.DB) *OwnerStore {
	return &OwnerStore{db: db}
}

func (s *OwnerStore) ByID(id uint) (*models.Owner, error) {
	var owner models.Owner
	err := s.db.First(&owner, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &owner, nil
}

func (s *OwnerStore) ByEmail(email string) (*models.Owner, error) {
	var owner models.Owner
	err := s.db.Where("LOWER(email) = LOWER(?)", email).First(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &owner, nil
}

// EmailsByIDs returns owner_id -> email for the given set, one query.
func (s *OwnerStore) EmailsByIDs(ids []uint) (map[uint]string, error) {
	emails := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return emails, nil
	}
	var rows []models.Owner
	if err := s.db.Select("id", "email").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, o := range rows {
		emails[o.ID] = o.Email
	}
	return emails, nil
}

// Deactivate flips the owner's active flag to false. Used by the license
// guard when the tamper strike count reaches its limit.
func (s *OwnerStore) Deactivate(ownerID uint) error {
	return s.db.Model(&models.Owner{}).Where("id = ?", ownerID).Update("is_active", false).Error
}
