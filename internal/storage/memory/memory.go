package memory

import (
	"context"
	"sync"

	"marketplace_api/internal/models"
	"marketplace_api/internal/storage"

	"github.com/google/uuid"
)

// MemoryRepo keeps users in process memory. Email is a unique secondary key.
type MemoryRepo struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
}

func New() *MemoryRepo {
	return &MemoryRepo{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepo) SaveUser(
	_ context.Context,
	email, name string,
	role models.Role,
	passHash []byte,
) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return "", storage.ErrUserExists
	}

	u := models.User{
		ID:       uuid.NewString(),
		Email:    email,
		Name:     name,
		PassHash: append([]byte(nil), passHash...),
		Role:     role,
	}

	r.users[u.ID] = u
	r.byEmail[email] = u.ID

	return u.ID, nil
}

func (r *MemoryRepo) User(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return r.users[id], nil
}

// UpdateUser persists name and email of the user identified by u.ID.
func (r *MemoryRepo) UpdateUser(_ context.Context, u models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[u.ID]
	if !ok {
		return storage.ErrUserNotFound
	}

	if owner, taken := r.byEmail[u.Email]; taken && owner != u.ID {
		return storage.ErrUserExists
	}

	delete(r.byEmail, current.Email)
	r.byEmail[u.Email] = u.ID

	current.Email = u.Email
	current.Name = u.Name
	r.users[u.ID] = current

	return nil
}
