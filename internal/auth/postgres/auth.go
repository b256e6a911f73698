package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/frahmantamala/safety-hazards/internal/auth"
	"github.com/jmoiron/sqlx"
)

const authColumns = `id, username, full_name, role, is_active,
	password_hash, password_salt, password_iterations, password_algorithm`

type authRow struct {
	ID                 int64          `db:"id"`
	Username           string         `db:"username"`
	FullName           string         `db:"full_name"`
	Role               string         `db:"role"`
	IsActive           bool           `db:"is_active"`
	PasswordHash       []byte         `db:"password_hash"`
	PasswordSalt       []byte         `db:"password_salt"`
	PasswordIterations sql.NullInt64  `db:"password_iterations"`
	PasswordAlgorithm  sql.NullString `db:"password_algorithm"`
}

func (r authRow) toUserAuth() *auth.UserAuth {
	return &auth.UserAuth{
		UserID:   r.ID,
		Username: r.Username,
		FullName: r.FullName,
		Role:     r.Role,
		IsActive: r.IsActive,
		Credential: auth.PasswordCredential{
			Salt:       r.PasswordSalt,
			Hash:       r.PasswordHash,
			Iterations: int(r.PasswordIterations.Int64),
			Algorithm:  r.PasswordAlgorithm.String,
		},
	}
}

// Repository reads credentials with sqlx over the pgx stdlib driver.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetAuthByUsername(ctx context.Context, username string) (*auth.UserAuth, error) {
	query := r.db.Rebind(`SELECT ` + authColumns + ` FROM users WHERE LOWER(username) = LOWER(?)`)
	return r.get(ctx, query, username)
}

func (r *Repository) GetAuthByID(ctx context.Context, userID int64) (*auth.UserAuth, error) {
	query := r.db.Rebind(`SELECT ` + authColumns + ` FROM users WHERE id = ?`)
	return r.get(ctx, query, userID)
}

func (r *Repository) get(ctx context.Context, query string, arg interface{}) (*auth.UserAuth, error) {
	var row authRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user credentials: %w", err)
	}
	return row.toUserAuth(), nil
}
