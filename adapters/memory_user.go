package adapters

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/satriahrh/drx-chat/domain"
	"github.com/satriahrh/drx-chat/domain/entities"
)

// MemoryUserRepository is an in-memory implementation of UserRepository
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[string]*entities.User // id -> user
	emails map[string]*entities.User // normalized email -> user
}

// NewMemoryUserRepository creates a new in-memory user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[string]*entities.User),
		emails: make(map[string]*entities.User),
	}
}

// Create implements UserRepository interface
func (m *MemoryUserRepository) Create(ctx context.Context, user *entities.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}

	if err := user.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := normalizeEmail(user.Email)
	if _, exists := m.emails[email]; exists {
		return domain.ErrUserExists
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	userCopy := *user
	m.users[user.ID] = &userCopy
	m.emails[email] = &userCopy

	return nil
}

// GetByID implements UserRepository interface
func (m *MemoryUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	if id == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	// Return a copy to prevent external modifications
	userCopy := *user
	return &userCopy, nil
}

// GetByEmail implements UserRepository interface
func (m *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.emails[normalizeEmail(email)]
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	userCopy := *user
	return &userCopy, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserCreator is the part of a user store needed for seeding
type UserCreator interface {
	Create(ctx context.Context, user *entities.User) error
}

// SeedUser hashes password and stores the user. An existing user with the same
// email is left untouched.
func SeedUser(ctx context.Context, repo UserCreator, email, password, name string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = repo.Create(ctx, &entities.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	})
	if errors.Is(err, domain.ErrUserExists) {
		return nil
	}
	return err
}

// CheckPassword compares a plain password against the stored bcrypt hash
func CheckPassword(user *entities.User, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.ErrInvalidCredentials
	}
	return nil
}
