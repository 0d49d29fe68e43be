package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/blog-platform/internal/model"
	"github.com/iliyamo/blog-platform/internal/repository"
)

// In-memory stands-ins for the repositories. They mirror the SQL
// implementations' semantics, including which sentinel errors surface,
// so the service tests exercise the same paths the handlers see.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]model.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, username string, passwordHash *string, avatarURL string, consentAt time.Time) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		// Soft-deleted rows keep their username reserved, as the unique
		// index does in MySQL.
		if u.Username == username {
			return model.User{}, repository.ErrUsernameExists
		}
	}
	now := time.Now().UTC()
	u := model.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		AvatarURL:    avatarURL,
		ConsentAt:    consentAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username && u.DeletedAt == nil {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByIDAny(_ context.Context, id uuid.UUID) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UsernameExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	u.PasswordHash = &hash
	u.UpdatedAt = time.Now().UTC()
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) SetPasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil || u.PasswordHash != nil {
		return repository.ErrNotFound
	}
	u.PasswordHash = &hash
	u.UpdatedAt = time.Now().UTC()
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) GrantAdmin(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil || u.IsAdmin {
		return repository.ErrNotFound
	}
	u.IsAdmin = true
	u.UpdatedAt = time.Now().UTC()
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) UpdateAvatar(_ context.Context, id uuid.UUID, avatarURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	u.AvatarURL = avatarURL
	u.UpdatedAt = time.Now().UTC()
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	u.DeletedAt = &now
	u.UpdatedAt = now
	f.users[id] = u
	return nil
}

type tokenRow struct {
	userID    uuid.UUID
	deviceID  string
	tokenHash string
	expiresAt time.Time
	revoked   bool
}

type fakeTokenStore struct {
	mu   sync.Mutex
	rows []*tokenRow
}

func newFakeTokenStore() *fakeTokenStore { return &fakeTokenStore{} }

func (f *fakeTokenStore) Put(_ context.Context, userID uuid.UUID, deviceID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.userID == userID && r.deviceID == deviceID && !r.revoked {
			r.revoked = true
		}
	}
	f.rows = append(f.rows, &tokenRow{
		userID:    userID,
		deviceID:  deviceID,
		tokenHash: tokenHash,
		expiresAt: expiresAt,
	})
	return nil
}

func (f *fakeTokenStore) Consume(_ context.Context, tokenHash, deviceID string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.tokenHash == tokenHash && r.deviceID == deviceID && !r.revoked && time.Now().UTC().Before(r.expiresAt) {
			r.revoked = true
			return r.userID, nil
		}
	}
	return uuid.Nil, repository.ErrInvalidRefresh
}

func (f *fakeTokenStore) Revoke(_ context.Context, userID uuid.UUID, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.userID == userID && r.deviceID == deviceID && !r.revoked {
			r.revoked = true
		}
	}
	return nil
}

func (f *fakeTokenStore) RevokeAll(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.userID == userID && !r.revoked {
			r.revoked = true
		}
	}
	return nil
}

// liveCount reports how many consumable rows a user currently holds.
func (f *fakeTokenStore) liveCount(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.userID == userID && !r.revoked && time.Now().UTC().Before(r.expiresAt) {
			n++
		}
	}
	return n
}

type fakeOAuthStore struct {
	mu        sync.Mutex
	providers map[uuid.UUID][]string
}

func newFakeOAuthStore() *fakeOAuthStore {
	return &fakeOAuthStore{providers: map[uuid.UUID][]string{}}
}

func (f *fakeOAuthStore) ProvidersForUser(_ context.Context, userID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	out = append(out, f.providers[userID]...)
	return out, nil
}

func (f *fakeOAuthStore) DetachAllForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.providers, userID)
	return nil
}
