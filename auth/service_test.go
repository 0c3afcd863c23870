package auth

import (
	"context"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Giriprasad013-git/modern-blog/database"
)

type captureMailer struct {
	mu    sync.Mutex
	to    []string
	links []string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.links)
	u, err := url.Parse(m.links[len(m.links)-1])
	require.NoError(t, err)
	return u.Query().Get("token")
}

func newTestService(t *testing.T) (*Service, *captureMailer) {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mailer := &captureMailer{}
	svc := NewService(NewSQLStore(db), mailer, Config{
		AdminEmails:  []string{"boss@example.com"},
		EditorEmails: []string{"Writer@Example.com"},
		ResetSecret:  []byte("test-secret"),
		ResetURL:     "https://blog.example.com/reset-password",
		BcryptCost:   bcrypt.MinCost,
	}, zap.NewNop())
	return svc, mailer
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	u, err := svc.SignUp(ctx, " Reader@Example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", u.Email)
	assert.Equal(t, RoleReader, u.Role)
	assert.NotEqual(t, "hunter22", u.PasswordHash)

	_, err = svc.SignUp(ctx, "reader@example.com", "another1")
	assert.Equal(t, ErrUserExists, err)
	assert.Equal(t, "User already registered", err.Error())

	got, err := svc.SignIn(ctx, "READER@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.SignIn(ctx, "reader@example.com", "wrong-password")
	assert.Equal(t, ErrInvalidCredentials, err)
	_, err = svc.SignIn(ctx, "nobody@example.com", "hunter22")
	assert.Equal(t, ErrInvalidCredentials, err)
	assert.Equal(t, "Invalid login credentials", err.Error())
}

func TestSignUpValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SignUp(ctx, "not-an-email", "hunter22")
	assert.Equal(t, ErrInvalidEmail, err)
	_, err = svc.SignUp(ctx, "ok@example.com", "12345")
	assert.Equal(t, ErrWeakPassword, err)
}

func TestRolesFromConfig(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	admin, err := svc.SignUp(ctx, "boss@example.com", "hunter22")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.IsEditor())

	editor, err := svc.SignUp(ctx, "writer@example.com", "hunter22")
	require.NoError(t, err)
	assert.False(t, editor.IsAdmin())
	assert.True(t, editor.IsEditor())
}

func TestSignInPromotesConfiguredRole(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.SignUp(ctx, "late@example.com", "hunter22")
	require.NoError(t, err)

	svc.cfg.EditorEmails = append(svc.cfg.EditorEmails, "late@example.com")
	u, err := svc.SignIn(ctx, "late@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, u.Role)

	stored, err := svc.User(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, stored.Role)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "bootstrap"))
	u, err := svc.SignIn(ctx, "root@example.com", "bootstrap")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)

	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "ignored"))
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	svc, mailer := newTestService(t)
	u, err := svc.SignUp(ctx, "forgetful@example.com", "original")
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "forgetful@example.com"))
	token := mailer.lastToken(t)
	require.NotEmpty(t, token)
	assert.Equal(t, []string{"forgetful@example.com"}, mailer.to)

	_, err = svc.ResetPassword(ctx, token, "short")
	assert.Equal(t, ErrWeakPassword, err)

	got, err := svc.ResetPassword(ctx, token, "replacement")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.SignIn(ctx, "forgetful@example.com", "replacement")
	require.NoError(t, err)

	// The token is bound to the old password hash.
	_, err = svc.ResetPassword(ctx, token, "third-one")
	assert.Equal(t, ErrInvalidToken, err)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	svc, mailer := newTestService(t)
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, mailer.to)
}

func TestPasswordResetTokenExpires(t *testing.T) {
	ctx := context.Background()
	svc, mailer := newTestService(t)
	_, err := svc.SignUp(ctx, "slow@example.com", "original")
	require.NoError(t, err)

	issued := time.Now()
	svc.now = func() time.Time { return issued }
	require.NoError(t, svc.RequestPasswordReset(ctx, "slow@example.com"))
	token := mailer.lastToken(t)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.ResetPassword(ctx, token, "replacement")
	assert.Equal(t, ErrInvalidToken, err)

	_, err = svc.ResetPassword(ctx, "garbage", "replacement")
	assert.Equal(t, ErrInvalidToken, err)
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	u, err := svc.SignUp(ctx, "mover@example.com", "original")
	require.NoError(t, err)

	assert.Equal(t, ErrWeakPassword, svc.UpdatePassword(ctx, u.ID, "abc"))
	require.NoError(t, svc.UpdatePassword(ctx, u.ID, "changed!"))
	_, err = svc.SignIn(ctx, "mover@example.com", "changed!")
	assert.NoError(t, err)
	assert.Equal(t, ErrNotFound, svc.UpdatePassword(ctx, "missing", "changed!"))
}

func TestSignInWithProvider(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	u, err := svc.SignInWithProvider(ctx, ProviderGoogle, "Social@Example.com")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, u.Provider)
	assert.Equal(t, "social@example.com", u.Email)

	again, err := svc.SignInWithProvider(ctx, ProviderGoogle, "social@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	// Provider accounts have no password.
	_, err = svc.SignIn(ctx, "social@example.com", "")
	assert.Equal(t, ErrInvalidCredentials, err)
}
