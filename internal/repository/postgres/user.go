package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
)

const userColumns = `id, email, first_name, last_name, profile_image_url, bio, created_at, updated_at`

// GetUser retrieves a user by id.
func (db *DB) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return &u, nil
}

// UpsertUser inserts or refreshes a user. NULL incoming values keep the
// stored ones, and created_at is never touched on conflict.
func (db *DB) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u, `
		INSERT INTO users (id, email, first_name, last_name, profile_image_url, bio)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			email             = COALESCE(EXCLUDED.email, users.email),
			first_name        = COALESCE(EXCLUDED.first_name, users.first_name),
			last_name         = COALESCE(EXCLUDED.last_name, users.last_name),
			profile_image_url = COALESCE(EXCLUDED.profile_image_url, users.profile_image_url),
			bio               = COALESCE(EXCLUDED.bio, users.bio),
			updated_at        = NOW()
		RETURNING `+userColumns,
		user.ID, user.Email, user.FirstName, user.LastName, user.ProfileImageURL, user.Bio,
	)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return nil, apperror.Conflict("user email", user.ID)
		}
		return nil, fmt.Errorf("postgres: upserting user %s: %w", user.ID, err)
	}
	return &u, nil
}

// UpdateUser applies a partial profile update.
func (db *DB) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	sets := []string{"updated_at = NOW()"}
	var args []any
	add := func(column string, v *string) {
		if v != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *v)
		}
	}
	add("first_name", patch.FirstName)
	add("last_name", patch.LastName)
	add("profile_image_url", patch.ProfileImageURL)
	add("bio", patch.Bio)
	args = append(args, id)

	query := db.conn.Rebind(`UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ? RETURNING ` + userColumns)

	var u model.User
	err := db.conn.GetContext(ctx, &u, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: updating user %s: %w", id, err)
	}
	return &u, nil
}
