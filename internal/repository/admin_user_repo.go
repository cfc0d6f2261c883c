package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

const adminUserColumns = `id, name, email, password_hash, api_token, remember_token, role, is_active,
	last_login_at, created_at, updated_at`

// AdminUserRepository handles data access for admin users.
type AdminUserRepository struct {
	db sqlx.ExtContext
}

// NewAdminUserRepository creates a new AdminUserRepository.
func NewAdminUserRepository(db sqlx.ExtContext) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

func (r *AdminUserRepository) getBy(ctx context.Context, where string, arg interface{}) (*models.AdminUser, error) {
	var user models.AdminUser
	q := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE ` + where + ` LIMIT 1`
	if err := sqlx.GetContext(ctx, r.db, &user, q, arg); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetActiveByEmail returns an active admin with the given email, or sql.ErrNoRows.
func (r *AdminUserRepository) GetActiveByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	return r.getBy(ctx, "LOWER(email) = LOWER($1) AND is_active = true", email)
}

// GetActiveByTokenHash returns the active admin holding the token digest.
func (r *AdminUserRepository) GetActiveByTokenHash(ctx context.Context, tokenHash string) (*models.AdminUser, error) {
	return r.getBy(ctx, "api_token = $1 AND is_active = true", tokenHash)
}

// GetByID returns an admin regardless of status.
func (r *AdminUserRepository) GetByID(ctx context.Context, id int) (*models.AdminUser, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByEmail returns an admin regardless of status.
func (r *AdminUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	return r.getBy(ctx, "LOWER(email) = LOWER($1)", email)
}

// SetToken stores the digest of a freshly issued token, replacing any previous
// one, and stamps last_login_at.
func (r *AdminUserRepository) SetToken(ctx context.Context, id int, tokenHash string) error {
	const q = `UPDATE admin_users
		SET api_token = $2, last_login_at = NOW(), updated_at = NOW()
		WHERE id = $1`
	return execAffectingOne(ctx, r.db, q, id, tokenHash)
}

// ClearTokenByHash revokes the session holding tokenHash. It reports whether a
// row was updated.
func (r *AdminUserRepository) ClearTokenByHash(ctx context.Context, tokenHash string) (bool, error) {
	const q = `UPDATE admin_users
		SET api_token = NULL, remember_token = NULL, updated_at = NOW()
		WHERE api_token = $1`
	res, err := r.db.ExecContext(ctx, q, tokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdatePassword stores a new bcrypt hash.
func (r *AdminUserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	const q = `UPDATE admin_users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	return execAffectingOne(ctx, r.db, q, id, passwordHash)
}

// Create inserts a new admin and fills generated columns.
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	const q = `
		INSERT INTO admin_users (name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q, user.Name, user.Email, user.PasswordHash, user.Role, user.IsActive).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}
