package session

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialKey is the name of the single stored credential entry.
const CredentialKey = "token"

// CredentialStorage persists the raw credential between runs.
type CredentialStorage interface {
	// Load returns the stored credential, or "" when none is stored.
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// StoredCredential is a named entry in the client's durable storage.
type StoredCredential struct {
	Name      string `gorm:"primaryKey;type:text"`
	Value     string `gorm:"not null;type:text"`
	UpdatedAt time.Time
}

// TableName returns the table name for the StoredCredential entity.
func (StoredCredential) TableName() string {
	return "credentials"
}

// CredentialRepository stores the credential in a GORM database.
type CredentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{
		db: db,
	}
}

// Migrate creates the credentials table.
func (r *CredentialRepository) Migrate() error {
	return r.db.AutoMigrate(&StoredCredential{})
}

// Load returns the stored credential.
func (r *CredentialRepository) Load() (string, error) {
	var entry StoredCredential
	result := r.db.First(&entry, "name = ?", CredentialKey)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return entry.Value, nil
}

// Save replaces the stored credential.
func (r *CredentialRepository) Save(token string) error {
	entry := StoredCredential{
		Name:      CredentialKey,
		Value:     token,
		UpdatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// Clear removes the stored credential. Clearing an empty store is not an error.
func (r *CredentialRepository) Clear() error {
	return r.db.Where("name = ?", CredentialKey).Delete(&StoredCredential{}).Error
}
