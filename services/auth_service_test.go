package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unimarket/unimarket-chat/config"
	"github.com/unimarket/unimarket-chat/models"
	"github.com/unimarket/unimarket-chat/services/jwt"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(repo *fakeAuthRepo) AuthService {
	return NewAuthService(repo, &config.Config{JWTSecret: "test-secret"})
}

func TestSignupHashesPassword(t *testing.T) {
	repo := newFakeAuthRepo()
	service := newAuthService(repo)

	created, apiErr := service.SignupUser(&models.User{
		Username: "alice",
		Email:    "alice@campus.edu",
		Password: "hunter2",
	})
	require.Nil(t, apiErr)
	assert.NotZero(t, created.ID)
	assert.Empty(t, created.Password)
	assert.Empty(t, created.HashedPassword)

	stored, err := repo.FindUserByID(created.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.HashedPassword), []byte("hunter2")))
}

func TestSignupRequiresAllFields(t *testing.T) {
	service := newAuthService(newFakeAuthRepo())

	_, apiErr := service.SignupUser(&models.User{Username: "alice"})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestSignupRejectsDuplicateUsername(t *testing.T) {
	service := newAuthService(newFakeAuthRepo())

	_, apiErr := service.SignupUser(&models.User{Username: "alice", Email: "a@campus.edu", Password: "pw"})
	require.Nil(t, apiErr)

	_, apiErr = service.SignupUser(&models.User{Username: "alice", Email: "b@campus.edu", Password: "pw"})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestLoginIssuesUsableToken(t *testing.T) {
	repo := newFakeAuthRepo()
	service := newAuthService(repo)

	_, apiErr := service.SignupUser(&models.User{Username: "alice", Email: "a@campus.edu", Password: "hunter2"})
	require.Nil(t, apiErr)

	resp, apiErr := service.LoginUser(&models.LoginRequest{Username: "alice", Password: "hunter2"})
	require.Nil(t, apiErr)
	require.NotEmpty(t, resp.AccessToken)
	assert.Empty(t, resp.User.HashedPassword)

	claims, err := jwt.ValidateAndGetClaims(resp.AccessToken, "test-secret")
	require.NoError(t, err)
	userID, err := jwt.UserIDFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, userID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	service := newAuthService(newFakeAuthRepo())

	_, apiErr := service.SignupUser(&models.User{Username: "alice", Email: "a@campus.edu", Password: "hunter2"})
	require.Nil(t, apiErr)

	_, apiErr = service.LoginUser(&models.LoginRequest{Username: "alice", Password: "wrong"})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestLoginUnknownUserGetsSameError(t *testing.T) {
	service := newAuthService(newFakeAuthRepo())

	_, apiErr := service.LoginUser(&models.LoginRequest{Username: "nobody", Password: "pw"})
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := newFakeAuthRepo()
	service := newAuthService(repo)

	require.Nil(t, service.LogoutUser("some-token"))
	assert.True(t, repo.IsTokenInBlacklist("some-token"))
}
