package user

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/store"
	"github.com/kasapos/backend-kasa/internal/store/memory"
)

var admin = common.Actor{ID: 1, Role: common.RoleAdmin}

func newSvc() (*Service, *memory.Memory) {
	st := memory.New()
	return &Service{St: st}, st
}

func mustCreate(t *testing.T, svc *Service, username string) int64 {
	t.Helper()
	u, err := svc.Create(context.Background(), CreateInput{
		Email:    username + "@example.com",
		Username: username,
		FullName: "Test " + username,
		Password: "hunter2hunter2",
		Role:     "employee",
	})
	require.NoError(t, err)
	return u.ID
}

func TestCreateHashesPasswordAndLowersEmail(t *testing.T) {
	svc, st := newSvc()
	u, err := svc.Create(context.Background(), CreateInput{
		Email:    "Jamie@Example.COM",
		Username: "jamie",
		FullName: "Jamie",
		Password: "hunter2hunter2",
		Role:     "employee",
	})
	require.NoError(t, err)
	require.Equal(t, "jamie@example.com", u.Email)

	stored, err := st.GetUserByUsername(context.Background(), "jamie")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2hunter2", stored.HashedPassword)
	ok, err := argon2id.ComparePasswordAndHash("hunter2hunter2", stored.HashedPassword)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCreateRejectsDuplicateIdentity(t *testing.T) {
	svc, _ := newSvc()
	mustCreate(t, svc, "jamie")
	_, err := svc.Create(context.Background(), CreateInput{
		Email:    "jamie@example.com",
		Username: "jamie2",
		FullName: "Jamie",
		Password: "hunter2hunter2",
		Role:     "employee",
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestUpdatePatchesProfile(t *testing.T) {
	svc, _ := newSvc()
	id := mustCreate(t, svc, "jamie")

	role := "market_owner"
	name := "Jamie Q"
	u, err := svc.Update(context.Background(), id, UpdateInput{FullName: &name, Role: &role})
	require.NoError(t, err)
	require.Equal(t, "Jamie Q", u.FullName)
	require.Equal(t, common.RoleMarketOwner, u.Role)
	require.Equal(t, "jamie", u.Username)
}

func TestDisableRevokesSessions(t *testing.T) {
	svc, st := newSvc()
	id := mustCreate(t, svc, "jamie")
	_, err := st.CreateRefreshToken(context.Background(), store.RefreshToken{
		UserID:    id,
		Token:     "tok-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	u, err := svc.SetStatus(context.Background(), id, store.UserDisabled, admin)
	require.NoError(t, err)
	require.Equal(t, store.UserDisabled, u.Status)

	tok, err := st.GetRefreshToken(context.Background(), "tok-1")
	require.NoError(t, err)
	require.True(t, tok.Revoked)
}

func TestSelfDisableRejected(t *testing.T) {
	svc, _ := newSvc()
	id := mustCreate(t, svc, "jamie")
	actor := common.Actor{ID: id, Role: common.RoleAdmin}

	_, err := svc.SetStatus(context.Background(), id, store.UserDisabled, actor)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	svc, st := newSvc()
	id := mustCreate(t, svc, "jamie")
	_, err := st.CreateRefreshToken(context.Background(), store.RefreshToken{
		UserID:    id,
		Token:     "tok-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(context.Background(), id, "newpassword1"))

	stored, err := st.GetUser(context.Background(), id)
	require.NoError(t, err)
	ok, err := argon2id.ComparePasswordAndHash("newpassword1", stored.HashedPassword)
	require.NoError(t, err)
	require.True(t, ok)

	tok, err := st.GetRefreshToken(context.Background(), "tok-1")
	require.NoError(t, err)
	require.True(t, tok.Revoked)
}

func TestListHidesDeletedAccounts(t *testing.T) {
	svc, _ := newSvc()
	keep := mustCreate(t, svc, "jamie")
	gone := mustCreate(t, svc, "riley")

	_, err := svc.SetStatus(context.Background(), gone, store.UserDeleted, admin)
	require.NoError(t, err)

	users, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, keep, users[0].ID)
}
