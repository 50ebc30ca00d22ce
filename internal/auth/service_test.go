package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
	"github.com/kasapos/backend-kasa/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := memory.New()
	svc, err := NewService(Config{
		Store:           st,
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc, st
}

func seedUser(t *testing.T, st store.Store, username, password string, status store.UserStatus) store.User {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	require.NoError(t, err)
	user, err := st.CreateUser(context.Background(), store.User{
		Email:          username + "@example.com",
		Username:       username,
		FullName:       "Test User",
		Role:           common.RoleEmployee,
		Status:         status,
		HashedPassword: hash,
	})
	require.NoError(t, err)
	return user
}

func TestLoginIssuesValidTokenPair(t *testing.T) {
	svc, st := newTestService(t)
	user := seedUser(t, st, "ayse", "correct horse", store.UserActive)

	result, err := svc.Login(context.Background(), "ayse", "correct horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, result.User.ID)
	require.NotEmpty(t, result.RefreshToken)

	actor, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, actor.ID)
	require.Equal(t, common.RoleEmployee, actor.Role)
}

func TestLoginAcceptsEmailIdentifier(t *testing.T) {
	svc, st := newTestService(t)
	seedUser(t, st, "ayse", "correct horse", store.UserActive)

	_, err := svc.Login(context.Background(), "ayse@example.com", "correct horse")
	require.NoError(t, err)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, st := newTestService(t)
	seedUser(t, st, "ayse", "correct horse", store.UserActive)

	_, err := svc.Login(context.Background(), "ayse", "wrong")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 401, appErr.HTTPStatus)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	svc, st := newTestService(t)
	seedUser(t, st, "ayse", "correct horse", store.UserDisabled)

	_, err := svc.Login(context.Background(), "ayse", "correct horse")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 401, appErr.HTTPStatus)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, st := newTestService(t)
	seedUser(t, st, "ayse", "correct horse", store.UserActive)

	login, err := svc.Login(context.Background(), "ayse", "correct horse")
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// the original token is single use
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.Error(t, err)

	_, err = svc.Refresh(context.Background(), rotated.RefreshToken)
	require.NoError(t, err)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, st := newTestService(t)
	seedUser(t, st, "ayse", "correct horse", store.UserActive)

	login, err := svc.Login(context.Background(), "ayse", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))

	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc, st := newTestService(t)
	seedUser(t, st, "ayse", "correct horse", store.UserActive)

	past := time.Now().UTC().Add(-2 * time.Hour)
	svc.WithNow(func() time.Time { return past })
	login, err := svc.Login(context.Background(), "ayse", "correct horse")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return time.Now().UTC() })
	_, err = svc.ParseAccessToken(login.AccessToken)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newTestService(t)

	token, err := jwt.NewBuilder().
		Subject("42").
		Issuer("backend-kasa").
		Audience([]string{"kasa-pos"}).
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte("another-secret-entirely")))
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(string(signed))
	require.Error(t, err)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, st := newTestService(t)
	user := seedUser(t, st, "ayse", "correct horse", store.UserActive)

	login, err := svc.Login(context.Background(), "ayse", "correct horse")
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, "correct horse", "battery staple")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.Error(t, err)

	_, err = svc.Login(context.Background(), "ayse", "battery staple")
	require.NoError(t, err)
}
