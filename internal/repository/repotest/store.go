// Package repotest содержит хранилище пользователей в памяти с той же семантикой,
// что и repository.UserRepository: неактивные аккаунты не находятся, токен сброса гасится условно.
package repotest

import (
	"context"
	"natours/internal/models"
	"natours/internal/repository"
	"strings"
	"sync"
	"time"
)

// UserStore — хранилище пользователей в памяти для тестов. Отдаёт копии, как настоящая БД.
type UserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		c.PasswordChangedAt = &t
	}
	if u.PasswordResetToken != nil {
		s := *u.PasswordResetToken
		c.PasswordResetToken = &s
	}
	if u.PasswordResetExpires != nil {
		t := *u.PasswordResetExpires
		c.PasswordResetExpires = &t
	}
	return &c
}

func (m *UserStore) IsEmailTaken(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *UserStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *UserStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.Active {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *UserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) && u.Active {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *UserStore) SaveCredentials(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok || !stored.Active {
		return repository.ErrNotFound
	}
	c := cloneUser(u)
	stored.PasswordHash = c.PasswordHash
	stored.PasswordChangedAt = c.PasswordChangedAt
	stored.PasswordResetToken = c.PasswordResetToken
	stored.PasswordResetExpires = c.PasswordResetExpires
	return nil
}

func (m *UserStore) UpdateUserFields(_ context.Context, id string, in *models.UpdateUserRequest) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.Active {
		return nil, repository.ErrNotFound
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	return cloneUser(u), nil
}

func (m *UserStore) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.Active {
		return repository.ErrNotFound
	}
	u.Active = false
	return nil
}

func (m *UserStore) GetAllUsersPaginated(_ context.Context, limit, offset int) ([]*models.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.User
	for _, u := range m.users {
		if u.Active {
			all = append(all, cloneUser(u))
		}
	}
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *UserStore) DeleteUserByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *UserStore) SetResetToken(_ context.Context, userID string, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || !u.Active {
		return repository.ErrNotFound
	}
	u.SetResetToken(hash, exp)
	return nil
}

func (m *UserStore) ClearResetToken(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.ClearResetToken()
	}
	return nil
}

func (m *UserStore) GetUserByResetToken(_ context.Context, hash string, now time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Active && u.PasswordResetToken != nil && *u.PasswordResetToken == hash && u.PasswordResetExpires.After(now) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *UserStore) ConsumeResetToken(_ context.Context, u *models.User, hash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok || !stored.Active || stored.PasswordResetToken == nil || *stored.PasswordResetToken != hash || !stored.PasswordResetExpires.After(now) {
		return repository.ErrNotFound
	}
	c := cloneUser(u)
	stored.PasswordHash = c.PasswordHash
	stored.PasswordChangedAt = c.PasswordChangedAt
	stored.ClearResetToken()
	return nil
}

// Stored — текущее состояние записи, включая неактивные.
func (m *UserStore) Stored(id string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneUser(m.users[id])
}
