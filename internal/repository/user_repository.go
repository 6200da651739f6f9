package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/goosenest/degree-audit-api/internal/models"
)

// UserRepository handles persistence for user accounts, refresh tokens
// and the audit trail.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository instantiates a user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, current_term, template_id, active, last_login_at, created_at, updated_at`

// FindByID loads one user.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail loads one active user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1 AND active = TRUE`, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin stamps the login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// SetTemplate points the user at a shared template. Passing nil detaches
// the user from templates entirely.
func (r *UserRepository) SetTemplate(ctx context.Context, id int64, templateID *int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET template_id = $2, updated_at = NOW() WHERE id = $1`, id, templateID); err != nil {
		return fmt.Errorf("set user template: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a refresh token.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, ip_address, user_agent)
		VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken loads a live refresh token by its opaque value.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
		FROM refresh_tokens WHERE token = $1 AND revoked = FALSE AND expires_at > $2`
	var refresh models.RefreshToken
	if err := r.db.GetContext(ctx, &refresh, query, token, time.Now()); err != nil {
		return nil, err
	}
	return &refresh, nil
}

// RevokeRefreshToken marks a token unusable.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserTokens revokes every live token of a user.
func (r *UserRepository) RevokeUserTokens(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE user_id = $1 AND revoked = FALSE`, userID); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

// CreateAuditLog appends one audit entry. Failures here must never block
// the mutation that triggered them; callers log and continue.
func (r *UserRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	const query = `INSERT INTO audit_logs (user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at)
		VALUES (:user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
