package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/infra/telemetry"
	"github.com/arklim/authgate/internal/repository"
)

var testUserID = uuid.MustParse("2f1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")

type fakeUsers struct {
	mu        sync.Mutex
	users     map[string]domain.User
	lookupErr error
	updated   map[uuid.UUID]string
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: map[string]domain.User{}, updated: map[uuid.UUID]string{}}
	for _, u := range users {
		f.users[u.Username] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.users {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if u, ok := f.users[username]; ok {
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, u := range f.users {
		if u.ID == id {
			u.PasswordHash = hash
			f.users[name] = u
			f.updated[id] = hash
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeTokenStore struct {
	mu          sync.Mutex
	blacklisted map[string]bool
	sessions    map[string]string
	readErr     error
	writeErr    error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{blacklisted: map[string]bool{}, sessions: map[string]string{}}
}

func (f *fakeTokenStore) BlacklistToken(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return false, f.writeErr
	}
	f.blacklisted[token] = true
	return true, nil
}

func (f *fakeTokenStore) IsBlacklisted(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return false, f.readErr
	}
	return f.blacklisted[token], nil
}

func (f *fakeTokenStore) CreateSession(_ context.Context, session domain.RefreshSession) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return false, f.writeErr
	}
	f.sessions[session.Key] = session.UserInfo
	return true, nil
}

func (f *fakeTokenStore) GetSession(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return "", false, f.readErr
	}
	v, ok := f.sessions[key]
	return v, ok, nil
}

type fakeIdentityCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]domain.Identity
	getErr  error
	sets    int
}

func newFakeIdentityCache() *fakeIdentityCache {
	return &fakeIdentityCache{entries: map[uuid.UUID]domain.Identity{}}
}

func (f *fakeIdentityCache) Get(_ context.Context, id uuid.UUID) (*domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if identity, ok := f.entries[id]; ok {
		return &identity, nil
	}
	return nil, nil
}

func (f *fakeIdentityCache) Set(_ context.Context, identity domain.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[identity.ID] = identity
	f.sets++
	return nil
}

type fakeEvents struct {
	mu         sync.Mutex
	resets     []domain.PasswordResetRequestedEvent
	changes    []domain.PasswordChangedEvent
	logouts    []domain.UserLoggedOutEvent
	publishErr error
}

func (f *fakeEvents) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, event)
	return f.publishErr
}

func (f *fakeEvents) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, event)
	return f.publishErr
}

func (f *fakeEvents) PublishUserLoggedOut(_ context.Context, event domain.UserLoggedOutEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, event)
	return f.publishErr
}

type fakeIPBlacklist struct {
	mu      sync.Mutex
	banned  map[string]bool
	readErr error
}

func newFakeIPBlacklist() *fakeIPBlacklist {
	return &fakeIPBlacklist{banned: map[string]bool{}}
}

func (f *fakeIPBlacklist) IsBlacklisted(_ context.Context, ip string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return false, f.readErr
	}
	return f.banned[ip], nil
}

func (f *fakeIPBlacklist) Add(_ context.Context, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned[ip] = true
	return nil
}

// fakeRates keeps an in-memory sliding window per key.
type fakeRates struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string][]time.Time
	err     error
}

func newFakeRates(window time.Duration) *fakeRates {
	return &fakeRates{window: window, entries: map[string][]time.Time{}}
}

func (f *fakeRates) RecordAndCheck(_ context.Context, identifier string, at time.Time) (domain.RateWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.RateWindow{}, f.err
	}
	kept := f.entries[identifier][:0]
	for _, ts := range f.entries[identifier] {
		if ts.After(at.Add(-f.window)) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, at)
	f.entries[identifier] = kept
	return domain.RateWindow{Count: len(kept), Oldest: kept[0]}, nil
}

func (f *fakeRates) Window() time.Duration {
	return f.window
}

func newTestMetrics(t *testing.T) *telemetry.AuthMetrics {
	t.Helper()
	metrics, err := telemetry.NewAuthMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewAuthMetrics returned error: %v", err)
	}
	return metrics
}
