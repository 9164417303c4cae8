package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/gatewarden/gatewarden/internal/shared"
)

// mockRepository enforces username/email uniqueness under a mutex, matching
// the all-or-nothing behavior of the transactional store.
type mockRepository struct {
	mu     sync.Mutex
	users  map[int64]*User
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[int64]*User), nextID: 1}
}

func (m *mockRepository) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			copied := *u
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockRepository) Create(ctx context.Context, user *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return nil, shared.ErrConflict
		}
	}
	created := *user
	created.ID = m.nextID
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.nextID++
	m.users[created.ID] = &created
	result := created
	return &result, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, NewHasher(bcrypt.MinCost), newTestTokenManager())
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), "  alice  ", "a@x.com", "Pw123!")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, shared.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "Pw123!", user.PasswordHash)
	assert.True(t, NewHasher(bcrypt.MinCost).Verify("Pw123!", user.PasswordHash))
}

func TestRegisterDuplicate(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), "alice", "a@x.com", "Pw123!")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "other@x.com", "Pw123!")
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Register(context.Background(), "bob", "a@x.com", "Pw123!")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestRegisterConcurrentDuplicateEmail(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	results := make([]error, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			_, err := svc.Register(context.Background(), "racer", "race@x.com", "Pw123!")
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var conflicts, successes int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, shared.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestLoginSuccess(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	created, err := svc.Register(context.Background(), "alice", "a@x.com", "Pw123!")
	require.NoError(t, err)

	for _, identifier := range []string{"alice", "a@x.com", " alice "} {
		user, pair, err := svc.Login(context.Background(), identifier, "Pw123!")
		require.NoError(t, err, "identifier %q", identifier)
		assert.Equal(t, created.ID, user.ID)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), "alice", "a@x.com", "Pw123!")
	require.NoError(t, err)

	// Unknown identifier and wrong password must be indistinguishable.
	_, _, err = svc.Login(context.Background(), "nobody", "Pw123!")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), "alice", "a@x.com", "Pw123!")
	require.NoError(t, err)
	repo.users[user.ID].IsActive = false

	_, _, err = svc.Login(context.Background(), "alice", "Pw123!")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginIssuesCurrentRole(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	tm := newTestTokenManager()

	user, err := svc.Register(context.Background(), "alice", "a@x.com", "Pw123!")
	require.NoError(t, err)

	_, before, err := svc.Login(context.Background(), "alice", "Pw123!")
	require.NoError(t, err)
	beforeClaims, err := tm.VerifyAccess(before.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleUser, beforeClaims.Role)

	// Promote, then log in again: the fresh token carries the new role
	// while the earlier token keeps its stale claim until expiry.
	repo.users[user.ID].Role = shared.RoleAdmin

	_, after, err := svc.Login(context.Background(), "alice", "Pw123!")
	require.NoError(t, err)
	afterClaims, err := tm.VerifyAccess(after.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleAdmin, afterClaims.Role)

	staleClaims, err := tm.VerifyAccess(before.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleUser, staleClaims.Role)
}

func TestRefresh(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	tm := newTestTokenManager()

	user, err := svc.Register(context.Background(), "alice", "a@x.com", "Pw123!")
	require.NoError(t, err)

	_, pair, err := svc.Login(context.Background(), "alice", "Pw123!")
	require.NoError(t, err)

	access, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	claims, err := tm.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleUser, claims.Role)

	// Refresh re-reads the store, so a role change shows up immediately.
	repo.users[user.ID].Role = shared.RoleAdmin
	access, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	claims, err = tm.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleAdmin, claims.Role)

	// Access tokens are not valid refresh tokens.
	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	// Deactivation blocks the refresh flow.
	repo.users[user.ID].IsActive = false
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}
