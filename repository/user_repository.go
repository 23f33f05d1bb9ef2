package repository

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/izba-pamieci/izbabackend/models"
)

// UserRepository handles database operations for staff accounts.
type UserRepository struct {
	DB *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create inserts a new user record.
func (r *UserRepository) Create(user *models.User) error {
	if err := r.DB.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by their unique username.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.DB.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureAdmin seeds the configured admin account when it does not exist yet.
// A blank password skips seeding so deployments can manage accounts manually.
func (r *UserRepository) EnsureAdmin(username, password string) error {
	if password == "" {
		return nil
	}

	_, err := r.GetByUsername(username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user %s: %w", username, err)
	}

	admin := &models.User{Username: username}
	if err := admin.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := r.Create(admin); err != nil {
		return err
	}

	zap.L().Info("seeded admin account", zap.String("username", username))
	return nil
}
