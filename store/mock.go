package store

import (
	"context"
	"sync"

	"github.com/klipach/connectsphere/contract"
	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of Store for view-model tests.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) WatchPosts(ctx context.Context, onSnapshot func([]contract.Post), onError func(error)) Subscription {
	args := m.Called(ctx, onSnapshot, onError)
	return args.Get(0).(Subscription)
}

func (m *MockStore) WatchUsers(ctx context.Context, onSnapshot func([]contract.UserProfile), onError func(error)) Subscription {
	args := m.Called(ctx, onSnapshot, onError)
	return args.Get(0).(Subscription)
}

func (m *MockStore) WatchMessages(ctx context.Context, roomID string, onSnapshot func([]contract.ChatMessage), onError func(error)) Subscription {
	args := m.Called(ctx, roomID, onSnapshot, onError)
	return args.Get(0).(Subscription)
}

func (m *MockStore) WatchProfile(ctx context.Context, uid string, onSnapshot func(*contract.UserProfile), onError func(error)) Subscription {
	args := m.Called(ctx, uid, onSnapshot, onError)
	return args.Get(0).(Subscription)
}

func (m *MockStore) SaveProfile(ctx context.Context, profile contract.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockStore) CreatePost(ctx context.Context, post contract.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockStore) SendMessage(ctx context.Context, roomID string, msg contract.ChatMessage) error {
	args := m.Called(ctx, roomID, msg)
	return args.Error(0)
}

// StubSubscription records Stop calls so tests can assert that exactly
// one listener is live at a time.
type StubSubscription struct {
	mu    sync.Mutex
	stops int
}

func (s *StubSubscription) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *StubSubscription) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}
