package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-platform/internal/utils"
)

const testAdminCode = "join-us-2024"

type testEnv struct {
	svc    *AuthService
	users  *fakeUserStore
	tokens *fakeTokenStore
	oauth  *fakeOAuthStore
}

func newTestEnv() testEnv {
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	oauth := newFakeOAuthStore()
	// bcrypt min cost keeps the suite fast; TTLs are realistic.
	svc := NewAuthService(users, tokens, oauth, "test-secret", 15, 30, 4, testAdminCode)
	return testEnv{svc: svc, users: users, tokens: tokens, oauth: oauth}
}

func register(t *testing.T, env testEnv, username, password, device string) AuthResult {
	t.Helper()
	res, err := env.svc.Register(context.Background(), RegisterInput{
		Username:        username,
		Password:        password,
		ConfirmPassword: password,
		DeviceID:        device,
	})
	require.NoError(t, err)
	return res
}

func TestRegisterIssuesUsableTokens(t *testing.T) {
	env := newTestEnv()
	res := register(t, env, "alice", "P@ssword1", "d1")

	assert.Equal(t, "alice", res.User.Username)
	assert.False(t, res.User.IsAdmin)
	assert.NotEmpty(t, res.Access.Token)
	assert.Len(t, res.Refresh.Raw, 96)
	assert.Equal(t, []string{}, res.Providers)

	p, err := utils.VerifyAccessToken("test-secret", res.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, p.UserID)
	assert.False(t, p.IsAdmin)

	// The registration's refresh token is immediately consumable.
	_, err = env.svc.Refresh(context.Background(), res.Refresh.Raw, "d1")
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"short username", RegisterInput{Username: "ab", Password: "longenough", ConfirmPassword: "longenough", DeviceID: "d1"}},
		{"long username", RegisterInput{Username: "abcdefghijklmnopq", Password: "longenough", ConfirmPassword: "longenough", DeviceID: "d1"}},
		{"bad charset", RegisterInput{Username: "has space", Password: "longenough", ConfirmPassword: "longenough", DeviceID: "d1"}},
		{"short password", RegisterInput{Username: "bob", Password: "short", ConfirmPassword: "short", DeviceID: "d1"}},
		{"confirmation mismatch", RegisterInput{Username: "bob", Password: "longenough", ConfirmPassword: "different1", DeviceID: "d1"}},
		{"missing device", RegisterInput{Username: "bob", Password: "longenough", ConfirmPassword: "longenough"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Register(ctx, tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv()
	register(t, env, "alice", "P@ssword1", "d1")

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "Other-pass1", ConfirmPassword: "Other-pass1", DeviceID: "d2",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	res := register(t, env, "alice", "P@ssword1", "d1")

	// Wrong password.
	_, err := env.svc.Login(ctx, "alice", "wrong-password", "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Unknown user.
	_, err = env.svc.Login(ctx, "nobody", "P@ssword1", "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// User without a local credential.
	u, err := env.users.Create(ctx, "oauth-only", nil, "", time.Now().UTC())
	require.NoError(t, err)
	_, err = env.svc.Login(ctx, u.Username, "anything-at-all", "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Soft-deleted user with the correct password.
	require.NoError(t, env.users.SoftDelete(ctx, res.User.ID))
	_, err = env.svc.Login(ctx, "alice", "P@ssword1", "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	res := register(t, env, "alice", "P@ssword1", "d1")

	// First use succeeds and yields a new pair.
	pair, err := env.svc.Refresh(ctx, res.Refresh.Raw, "d1")
	require.NoError(t, err)
	assert.NotEqual(t, res.Refresh.Raw, pair.Refresh.Raw)

	// Replaying the consumed token fails, even for the legitimate holder.
	_, err = env.svc.Refresh(ctx, res.Refresh.Raw, "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// The new token is itself refreshable exactly once.
	_, err = env.svc.Refresh(ctx, pair.Refresh.Raw, "d1")
	require.NoError(t, err)
	_, err = env.svc.Refresh(ctx, pair.Refresh.Raw, "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshDeviceIsolation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	res := register(t, env, "alice", "P@ssword1", "d1")

	// A valid token presented with the wrong device id fails like an
	// unknown token, and is NOT consumed by the failed attempt.
	_, err := env.svc.Refresh(ctx, res.Refresh.Raw, "d2")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.svc.Refresh(ctx, res.Refresh.Raw, "d1")
	assert.NoError(t, err)
}

func TestLoginKeepsOtherDeviceAlive(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	reg := register(t, env, "alice", "P@ssword1", "d1")
	login, err := env.svc.Login(ctx, "alice", "P@ssword1", "d2")
	require.NoError(t, err)

	// Two independent device sessions coexist.
	assert.Equal(t, 2, env.tokens.liveCount(reg.User.ID))

	// A second login on d1 rotates d1's row but leaves d2 alone.
	relogin, err := env.svc.Login(ctx, "alice", "P@ssword1", "d1")
	require.NoError(t, err)
	_, err = env.svc.Refresh(ctx, reg.Refresh.Raw, "d1")
	assert.ErrorIs(t, err, ErrUnauthorized, "old d1 token rotated out")
	_, err = env.svc.Refresh(ctx, login.Refresh.Raw, "d2")
	assert.NoError(t, err, "d2 session unaffected")
	_, err = env.svc.Refresh(ctx, relogin.Refresh.Raw, "d1")
	assert.NoError(t, err)
}

func TestLogoutSingleDevice(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	reg := register(t, env, "alice", "P@ssword1", "d1")
	other, err := env.svc.Login(ctx, "alice", "P@ssword1", "d2")
	require.NoError(t, err)

	d1 := "d1"
	require.NoError(t, env.svc.Logout(ctx, reg.User.ID, &d1))

	_, err = env.svc.Refresh(ctx, reg.Refresh.Raw, "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.svc.Refresh(ctx, other.Refresh.Raw, "d2")
	assert.NoError(t, err)
}

func TestLogoutAllDevices(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	reg := register(t, env, "alice", "P@ssword1", "d1")
	other, err := env.svc.Login(ctx, "alice", "P@ssword1", "d2")
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, reg.User.ID, nil))

	_, err = env.svc.Refresh(ctx, reg.Refresh.Raw, "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.svc.Refresh(ctx, other.Refresh.Raw, "d2")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogoutEmptyDeviceID(t *testing.T) {
	env := newTestEnv()
	reg := register(t, env, "alice", "P@ssword1", "d1")

	empty := ""
	err := env.svc.Logout(context.Background(), reg.User.ID, &empty)
	assert.ErrorIs(t, err, ErrValidation)
	// The session must survive the rejected request.
	assert.Equal(t, 1, env.tokens.liveCount(reg.User.ID))
}

func TestChangePasswordRevocationCascade(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	reg := register(t, env, "alice", "P@ssword1", "d1")
	d2sess, err := env.svc.Login(ctx, "alice", "P@ssword1", "d2")
	require.NoError(t, err)

	res, err := env.svc.ChangePassword(ctx, reg.User.ID, "P@ssword1", "N3w-password", "N3w-password", "d1")
	require.NoError(t, err)

	// Both pre-existing sessions are evicted; only the fresh pair works.
	_, err = env.svc.Refresh(ctx, reg.Refresh.Raw, "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.svc.Refresh(ctx, d2sess.Refresh.Raw, "d2")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.svc.Refresh(ctx, res.Refresh.Raw, "d1")
	assert.NoError(t, err)

	// Old password no longer logs in, the new one does.
	_, err = env.svc.Login(ctx, "alice", "P@ssword1", "d3")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.svc.Login(ctx, "alice", "N3w-password", "d3")
	assert.NoError(t, err)
}

func TestChangePasswordRejections(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	reg := register(t, env, "alice", "P@ssword1", "d1")

	_, err := env.svc.ChangePassword(ctx, reg.User.ID, "wrong-current", "N3w-password", "N3w-password", "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.svc.ChangePassword(ctx, reg.User.ID, "P@ssword1", "P@ssword1", "P@ssword1", "d1")
	assert.ErrorIs(t, err, ErrValidation, "unchanged password")

	_, err = env.svc.ChangePassword(ctx, reg.User.ID, "P@ssword1", "N3w-password", "Different-1", "d1")
	assert.ErrorIs(t, err, ErrValidation, "confirmation mismatch")

	// Rejected attempts must not have evicted the session.
	assert.Equal(t, 1, env.tokens.liveCount(reg.User.ID))
}

func TestSetPassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// An account without a local credential can set one, once.
	u, err := env.users.Create(ctx, "oauth-only", nil, "", time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, env.svc.SetPassword(ctx, u.ID, "Fresh-pass1", "Fresh-pass1"))
	_, err = env.svc.Login(ctx, "oauth-only", "Fresh-pass1", "d1")
	assert.NoError(t, err)

	// A second set-password no longer applies: Not Found, not Conflict.
	err = env.svc.SetPassword(ctx, u.ID, "Another-pass1", "Another-pass1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Same for an account registered with a password.
	reg := register(t, env, "alice", "P@ssword1", "d1")
	err = env.svc.SetPassword(ctx, reg.User.ID, "Another-pass1", "Another-pass1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinAdmin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	reg := register(t, env, "alice", "P@ssword1", "d1")
	other, err := env.svc.Login(ctx, "alice", "P@ssword1", "d2")
	require.NoError(t, err)

	// Wrong code: 400, no elevation.
	_, err = env.svc.JoinAdmin(ctx, reg.User.ID, "wrong-code", "d1")
	assert.ErrorIs(t, err, ErrValidation)

	res, err := env.svc.JoinAdmin(ctx, reg.User.ID, testAdminCode, "d1")
	require.NoError(t, err)
	assert.True(t, res.User.IsAdmin)

	// The fresh access token carries the elevated claim immediately.
	p, err := utils.VerifyAccessToken("test-secret", res.Access.Token)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)

	// Second elevation fails and must not touch unrelated sessions.
	_, err = env.svc.JoinAdmin(ctx, reg.User.ID, testAdminCode, "d1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.svc.Refresh(ctx, other.Refresh.Raw, "d2")
	assert.NoError(t, err, "d2 session survives both attempts")
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	alice := register(t, env, "alice", "P@ssword1", "d1")
	bob := register(t, env, "bobby", "P@ssword1", "d1")

	// A non-admin cannot delete someone else.
	err := env.svc.DeleteUser(ctx, alice.User.ID, false, bob.User.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// Self-deletion works and kills the sessions.
	require.NoError(t, env.svc.DeleteUser(ctx, alice.User.ID, false, alice.User.ID))
	_, err = env.svc.Refresh(ctx, alice.Refresh.Raw, "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.svc.Login(ctx, "alice", "P@ssword1", "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Deleting an already-deleted account is Not Found.
	err = env.svc.DeleteUser(ctx, alice.User.ID, true, alice.User.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// An admin can delete another user; oauth links are detached.
	env.oauth.providers[bob.User.ID] = []string{"google"}
	require.NoError(t, env.svc.DeleteUser(ctx, alice.User.ID, true, bob.User.ID))
	providers, err := env.oauth.ProvidersForUser(ctx, bob.User.ID)
	require.NoError(t, err)
	assert.Empty(t, providers)
}

func TestRefreshAfterAccountDeleted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	reg := register(t, env, "alice", "P@ssword1", "d1")

	// Revocation happens on delete, but even a hypothetically surviving
	// row dies at refresh time because the owner lookup skips deleted
	// accounts.
	require.NoError(t, env.users.SoftDelete(ctx, reg.User.ID))
	_, err := env.svc.Refresh(ctx, reg.Refresh.Raw, "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCheckUsername(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	exists, err := env.svc.CheckUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists)

	reg := register(t, env, "alice", "P@ssword1", "d1")
	exists, err = env.svc.CheckUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	// Soft-deleted accounts keep the username reserved.
	require.NoError(t, env.users.SoftDelete(ctx, reg.User.ID))
	exists, err = env.svc.CheckUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRegisterLoginRefreshScenario(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// register(alice, d1) -> tokens T1
	t1 := register(t, env, "alice", "P@ssword1", "d1")

	// login(alice, d1) -> new tokens T2; T1's refresh token is rotated
	// out because login replaces the (alice, d1) row.
	t2, err := env.svc.Login(ctx, "alice", "P@ssword1", "d1")
	require.NoError(t, err)
	assert.NotEqual(t, t1.Refresh.Raw, t2.Refresh.Raw)

	_, err = env.svc.Refresh(ctx, t1.Refresh.Raw, "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// T2 refreshes once into T3, then replay of T2 fails.
	t3, err := env.svc.Refresh(ctx, t2.Refresh.Raw, "d1")
	require.NoError(t, err)
	_, err = env.svc.Refresh(ctx, t2.Refresh.Raw, "d1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.svc.Refresh(ctx, t3.Refresh.Raw, "d1")
	assert.NoError(t, err)
}

func TestJoinAdminVanishedUser(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.JoinAdmin(context.Background(), uuid.New(), testAdminCode, "d1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAvatar(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	res := register(t, env, "alice", "P@ssword1", "d1")

	u, err := env.svc.UpdateAvatar(ctx, res.User.ID, "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", u.AvatarURL)

	// Clearing works, and no refresh tokens rotate.
	u, err = env.svc.UpdateAvatar(ctx, res.User.ID, "")
	require.NoError(t, err)
	assert.Empty(t, u.AvatarURL)
	assert.Equal(t, 1, env.tokens.liveCount(res.User.ID))

	// A deleted account cannot be updated.
	require.NoError(t, env.users.SoftDelete(ctx, res.User.ID))
	_, err = env.svc.UpdateAvatar(ctx, res.User.ID, "x")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
