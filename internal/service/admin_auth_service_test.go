package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

func newAuthService(t *testing.T) (*AdminAuthService, *memDB) {
	t.Helper()
	db := newMemDB()
	return NewAdminAuthService(db.repos().Admins), db
}

func seedAdmin(t *testing.T, db *memDB, email, password string, active bool) *models.AdminUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.AdminUser{Name: "Admin", Email: email, PasswordHash: string(hash), Role: "admin", IsActive: active}
	require.NoError(t, db.repos().Admins.Create(context.Background(), u))
	return u
}

func TestLogin_IssuesTokenStoredAsDigest(t *testing.T) {
	svc, db := newAuthService(t)
	admin := seedAdmin(t, db, "owner@shop.test", "secret-pass", true)

	res, err := svc.Login(context.Background(), "owner@shop.test", "secret-pass")
	require.NoError(t, err)

	assert.Len(t, res.Token, 80)
	assert.Equal(t, admin.ID, res.User.ID)

	stored := db.admins[admin.ID]
	require.NotNil(t, stored.APIToken)
	assert.Equal(t, utils.HashToken(res.Token), *stored.APIToken)
	assert.NotEqual(t, res.Token, *stored.APIToken)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	svc, db := newAuthService(t)
	seedAdmin(t, db, "owner@shop.test", "secret-pass", true)
	seedAdmin(t, db, "former@shop.test", "secret-pass", false)
	ctx := context.Background()

	_, wrongPassword := svc.Login(ctx, "owner@shop.test", "nope")
	_, unknownEmail := svc.Login(ctx, "nobody@shop.test", "secret-pass")
	_, inactive := svc.Login(ctx, "former@shop.test", "secret-pass")

	assert.ErrorIs(t, wrongPassword, utils.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, utils.ErrInvalidCredentials)
	assert.ErrorIs(t, inactive, utils.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_SecondLoginRevokesFirstToken(t *testing.T) {
	svc, db := newAuthService(t)
	seedAdmin(t, db, "owner@shop.test", "secret-pass", true)
	ctx := context.Background()

	first, err := svc.Login(ctx, "owner@shop.test", "secret-pass")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "owner@shop.test", "secret-pass")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	_, err = svc.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	id, err := svc.Authenticate(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, "owner@shop.test", id.Email)
}

func TestAuthenticate(t *testing.T) {
	svc, db := newAuthService(t)
	admin := seedAdmin(t, db, "owner@shop.test", "secret-pass", true)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, utils.ErrUnauthenticated)

	_, err = svc.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	res, err := svc.Login(ctx, "owner@shop.test", "secret-pass")
	require.NoError(t, err)

	db.admins[admin.ID].IsActive = false
	_, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestLogout_IsIdempotent(t *testing.T) {
	svc, db := newAuthService(t)
	admin := seedAdmin(t, db, "owner@shop.test", "secret-pass", true)
	ctx := context.Background()

	res, err := svc.Login(ctx, "owner@shop.test", "secret-pass")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Token))
	assert.Nil(t, db.admins[admin.ID].APIToken)

	_, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	assert.NoError(t, svc.Logout(ctx, res.Token))
	assert.NoError(t, svc.Logout(ctx, "unknown"))
	assert.NoError(t, svc.Logout(ctx, ""))
}

func TestChangePassword(t *testing.T) {
	svc, db := newAuthService(t)
	admin := seedAdmin(t, db, "owner@shop.test", "secret-pass", true)
	ctx := context.Background()

	res, err := svc.Login(ctx, "owner@shop.test", "secret-pass")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, admin.ID, "wrong-pass", "new-secret-pass")
	assert.ErrorIs(t, err, utils.ErrIncorrectPassword)

	err = svc.ChangePassword(ctx, admin.ID, "secret-pass", "short")
	assert.ErrorIs(t, err, utils.ErrValidationFailed)

	require.NoError(t, svc.ChangePassword(ctx, admin.ID, "secret-pass", "new-secret-pass"))

	_, err = svc.Login(ctx, "owner@shop.test", "secret-pass")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)

	// the session that changed the password stays valid
	_, err = svc.Authenticate(ctx, res.Token)
	assert.NoError(t, err)
}

func TestCreateAdmin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	u, err := svc.CreateAdmin(ctx, "Owner", "owner@shop.test", "secret-pass", "")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "secret-pass", u.PasswordHash)

	_, err = svc.CreateAdmin(ctx, "Owner", "OWNER@shop.test", "secret-pass", "")
	assert.ErrorIs(t, err, utils.ErrValidationFailed)

	_, err = svc.CreateAdmin(ctx, "", "bad", "x", "")
	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)

	res, err := svc.Login(ctx, "owner@shop.test", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
}
