package auth

import (
	"errors"
	"fmt"

	domain "github.com/example/taskboard/domain/user"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when the username or email is taken.
	ErrUserExists = errors.New("username or email already taken")
)

// AccountRepository handles account persistence using GORM.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

// Migrate creates the users table.
func (r *AccountRepository) Migrate() error {
	return r.db.AutoMigrate(&domain.Account{})
}

// Create stores a new account.
func (r *AccountRepository) Create(account *domain.Account) error {
	result := r.db.Create(account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create account: %w", result.Error)
	}
	return nil
}

// FindByID finds an account by ID.
func (r *AccountRepository) FindByID(id string) (*domain.Account, error) {
	return r.findOne("id = ?", id)
}

// FindByUsername finds an account by username.
func (r *AccountRepository) FindByUsername(username string) (*domain.Account, error) {
	return r.findOne("username = ?", username)
}

// Taken reports whether an account already uses username or email.
func (r *AccountRepository) Taken(username, email string) (bool, error) {
	var count int64
	result := r.db.Model(&domain.Account{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// FindAll returns every account in creation order.
func (r *AccountRepository) FindAll() ([]domain.Account, error) {
	var accounts []domain.Account
	if err := r.db.Order("created_at asc").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) findOne(query string, arg string) (*domain.Account, error) {
	var account domain.Account
	result := r.db.First(&account, query, arg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}
