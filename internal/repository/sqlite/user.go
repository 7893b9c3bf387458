package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
)

const userColumns = `id, email, first_name, last_name, profile_image_url, bio, created_at, updated_at`

func scanUser(row scanner) (*model.User, error) {
	var (
		u                                  model.User
		email, first, last, image, bioText sql.NullString
	)
	if err := row.Scan(&u.ID, &email, &first, &last, &image, &bioText, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Email = stringPtr(email)
	u.FirstName = stringPtr(first)
	u.LastName = stringPtr(last)
	u.ProfileImageURL = stringPtr(image)
	u.Bio = stringPtr(bioText)
	return &u, nil
}

func getUser(ctx context.Context, q queryer, id string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUser retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetUser(ctx context.Context, id string) (*model.User, error) {
	return getUser(ctx, db.conn, id)
}

// UpsertUser inserts a user or refreshes an existing one.
//
// ON CONFLICT ... DO UPDATE keeps the existing row (and its created_at) and
// overwrites only the columns the caller supplied: COALESCE falls back to
// the stored value when the incoming one is NULL. A login therefore never
// wipes a bio the user wrote, but a changed email or avatar is picked up.
func (db *DB) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := db.now()

	var out *model.User
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, first_name, last_name, profile_image_url, bio, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				email             = COALESCE(excluded.email, users.email),
				first_name        = COALESCE(excluded.first_name, users.first_name),
				last_name         = COALESCE(excluded.last_name, users.last_name),
				profile_image_url = COALESCE(excluded.profile_image_url, users.profile_image_url),
				bio               = COALESCE(excluded.bio, users.bio),
				updated_at        = excluded.updated_at`,
			user.ID,
			nullString(user.Email),
			nullString(user.FirstName),
			nullString(user.LastName),
			nullString(user.ProfileImageURL),
			nullString(user.Bio),
			now,
			now,
		)
		if err != nil {
			if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
				return apperror.Conflict("user email", user.ID)
			}
			return fmt.Errorf("sqlite: upserting user %s: %w", user.ID, err)
		}

		out, err = getUser(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser applies a partial profile update and returns the new row.
func (db *DB) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
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
	sets = append(sets, "updated_at = ?")
	args = append(args, db.now(), id)

	var out *model.User
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", id, err)
		} else if n == 0 {
			return apperror.NotFound("user", id)
		}

		out, err = getUser(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
