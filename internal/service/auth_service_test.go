package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/goosenest/degree-audit-api/internal/models"
	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
)

type authRepoMock struct {
	usersByEmail  map[string]*models.User
	usersByID     map[int64]*models.User
	tokens        map[string]*models.RefreshToken
	revoked       []string
	lastLoginUser int64
	auditEntries  []models.AuditLog
}

func newAuthRepoMock() *authRepoMock {
	return &authRepoMock{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[int64]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
	}
}

func (m *authRepoMock) addUser(user *models.User) {
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
}

func (m *authRepoMock) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *authRepoMock) FindByID(ctx context.Context, id int64) (*models.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *authRepoMock) UpdateLastLogin(ctx context.Context, id int64) error {
	m.lastLoginUser = id
	return nil
}

func (m *authRepoMock) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *authRepoMock) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (m *authRepoMock) RevokeRefreshToken(ctx context.Context, id string) error {
	m.revoked = append(m.revoked, id)
	for _, token := range m.tokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func (m *authRepoMock) RevokeUserTokens(ctx context.Context, userID int64) error {
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *authRepoMock) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditEntries = append(m.auditEntries, *log)
	return nil
}

func newTestAuthService(repo *authRepoMock) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "degree-audit-api",
	})
}

func seedAuthUser(t *testing.T, repo *authRepoMock) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           5,
		Email:        "student@uni.test",
		PasswordHash: string(hash),
		FullName:     "Test Student",
		CurrentTerm:  "2A",
		Active:       true,
	}
	repo.addUser(user)
	return user
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	repo := newAuthRepoMock()
	seedAuthUser(t, repo)
	svc := newTestAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@uni.test",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(5), resp.User.ID)
	assert.Equal(t, int64(5), repo.lastLoginUser)
	require.Len(t, repo.auditEntries, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditEntries[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(5), claims.UserID)
	assert.Equal(t, "student@uni.test", claims.Email)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoMock()
	seedAuthUser(t, repo)
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@uni.test",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newAuthRepoMock()
	user := seedAuthUser(t, repo)
	user.Active = false
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@uni.test",
		Password: "correct-horse",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newAuthRepoMock()
	seedAuthUser(t, repo)
	svc := newTestAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@uni.test",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	// The spent token no longer refreshes.
	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutOwnershipCheck(t *testing.T) {
	repo := newAuthRepoMock()
	seedAuthUser(t, repo)
	svc := newTestAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@uni.test",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), 99, login.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), 5, login.RefreshToken))
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	repo := newAuthRepoMock()
	seedAuthUser(t, repo)
	svc := newTestAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@uni.test",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "different-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "degree-audit-api",
	})
	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
