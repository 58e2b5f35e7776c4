package auth_test

import (
	"context"
	"strings"
	"sync"

	"github.com/coffee-export/export-manager/internal/auth"
)

type mockRepository struct {
	mu        sync.Mutex
	users     map[string]auth.User
	findError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[string]auth.User)}
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findError != nil {
		return nil, m.findError
	}
	u, ok := m.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (m *mockRepository) CreateUser(ctx context.Context, user auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := m.users[key]; ok {
		return auth.ErrEmailTaken
	}
	m.users[key] = user
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []auth.SessionEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event auth.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []auth.SessionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]auth.SessionEvent(nil), p.events...)
}
