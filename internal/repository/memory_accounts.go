package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/wage-wallet/internal/domain"
)

// MemoryUserRepository keeps users in process, keyed by id with a unique
// case-insensitive email index.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
}

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := r.byEmail[key]; ok {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.byID[user.ID] = *user
	r.byEmail[key] = user.ID
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[user.ID]
	if !ok {
		return ErrNotFound
	}
	key := strings.ToLower(user.Email)
	if owner, ok := r.byEmail[key]; ok && owner != user.ID {
		return ErrAlreadyExists
	}
	delete(r.byEmail, strings.ToLower(existing.Email))
	user.UpdatedAt = time.Now().UTC()
	r.byID[user.ID] = *user
	r.byEmail[key] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// MemoryAdminRepository mirrors MemoryUserRepository for admins.
type MemoryAdminRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.Admin
	byEmail map[string]string
}

// NewMemoryAdminRepository returns an empty repository.
func NewMemoryAdminRepository() *MemoryAdminRepository {
	return &MemoryAdminRepository{
		byID:    make(map[string]domain.Admin),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryAdminRepository) Create(_ context.Context, admin *domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(admin.Email)
	if _, ok := r.byEmail[key]; ok {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	admin.ID = uuid.NewString()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	r.byID[admin.ID] = *admin
	r.byEmail[key] = admin.ID
	return nil
}

func (r *MemoryAdminRepository) Update(_ context.Context, admin *domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[admin.ID]
	if !ok {
		return ErrNotFound
	}
	delete(r.byEmail, strings.ToLower(existing.Email))
	admin.UpdatedAt = time.Now().UTC()
	r.byID[admin.ID] = *admin
	r.byEmail[strings.ToLower(admin.Email)] = admin.ID
	return nil
}

func (r *MemoryAdminRepository) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	admin, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &admin, nil
}

func (r *MemoryAdminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
