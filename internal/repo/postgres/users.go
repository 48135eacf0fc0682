package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/geocoder89/inkhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, username, password_hash, avatar_url, role, status, reset_token, reset_token_expiry, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	return r.prom.ObserveDB(op, fn)
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var hash *string
	var role, status string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&hash,
		&u.AvatarURL,
		&role,
		&status,
		&u.ResetToken,
		&u.ResetTokenExpiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	if hash != nil {
		u.PasswordHash = *hash
	}

	u.Role = user.Role(role)
	u.Status = user.Status(status)

	if !u.Role.IsValid() || !u.Status.IsValid() {
		return user.User{}, fmt.Errorf("user %s: corrupt role/status %q/%q", u.ID, role, status)
	}

	return u, nil
}

func (r *UsersRepo) getBy(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User
	var err error

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE `+where,
			arg,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_email", "email = $1", email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_id", "id = $1", id)
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return r.getBy(ctx, "users.get_by_username", "username = $1", username)
}

// GetByResetToken only matches a live token: exact value and unexpired.
func (r *UsersRepo) GetByResetToken(ctx context.Context, token string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_reset_token", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE reset_token = $1 AND reset_token_expiry > NOW()`,
			token,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, username, password_hash, avatar_url, role, status, created_at, updated_at)
			 VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9)`,
			u.ID, u.Email, u.Username, u.PasswordHash, u.AvatarURL, string(u.Role), string(u.Status), u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return user.User{}, mapUserUnique(err)
	}

	return u, nil
}

// mapUserUnique relies on the constraint name to tell email and username
// conflicts apart; the DB is the actual enforcement mechanism.
func mapUserUnique(err error) error {
	if !IsUniqueViolation(err) {
		return err
	}

	name := UniqueConstraintName(err)
	switch {
	case strings.Contains(name, "email"):
		return user.ErrEmailTaken
	case strings.Contains(name, "username"):
		return user.ErrUsernameTaken
	default:
		return err
	}
}

func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.update", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			 SET email = $2,
			     username = $3,
			     avatar_url = $4,
			     role = COALESCE($5, role),
			     status = COALESCE($6, status),
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, req.Email, req.Username, req.AvatarURL, (*string)(req.Role), (*string)(req.Status),
		))
		return err
	})

	if err != nil {
		return user.User{}, mapUserUnique(err)
	}

	return u, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id, username string, avatarURL *string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.update_profile", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			 SET username = $2, avatar_url = $3, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, username, avatarURL,
		))
		return err
	})

	if err != nil {
		return user.User{}, mapUserUnique(err)
	}

	return u, nil
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.update_role", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns,
			id, string(role),
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) UpdateStatus(ctx context.Context, id string, status user.Status) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.update_status", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns,
			id, string(status),
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	return r.observe("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

		if err != nil {
			return err
		}

		// if no rows were deleted as a result return a not found error
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

func (r *UsersRepo) List(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
	baseQuery := `SELECT ` + userColumns + `, COUNT(*) OVER() AS total FROM users`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.Role != nil {
		conds = append(conds, fmt.Sprintf("role = $%d", argsPosition))
		args = append(args, string(*filter.Role))
		argsPosition++
	}

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, string(*filter.Status))
		argsPosition++
	}

	if filter.Query != nil {
		conds = append(conds, fmt.Sprintf("(email ILIKE $%d OR username ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+*filter.Query+"%")
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	var out []user.User
	total := 0

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]user.User, 0, filter.Limit)

		for rows.Next() {
			var u user.User
			var hash *string
			var role, status string
			var t int

			err = rows.Scan(
				&u.ID, &u.Email, &u.Username, &hash, &u.AvatarURL,
				&role, &status, &u.ResetToken, &u.ResetTokenExpiry,
				&u.CreatedAt, &u.UpdatedAt, &t,
			)

			if err != nil {
				return err
			}

			if hash != nil {
				u.PasswordHash = *hash
			}
			u.Role = user.Role(role)
			u.Status = user.Status(status)

			total = t
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

// SetResetToken installs a fresh token, silently superseding any prior
// unexpired one (last writer wins).
func (r *UsersRepo) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	return r.observe("users.set_reset_token", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET reset_token = $2, reset_token_expiry = $3, updated_at = NOW() WHERE id = $1`,
			id, token, expiry,
		)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.observe("users.update_password", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
			id, passwordHash,
		)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}

// ConsumePasswordReset swaps in the new hash and clears the token and its
// expiry in a single statement so the token cannot be redeemed twice.
func (r *UsersRepo) ConsumePasswordReset(ctx context.Context, id, token, passwordHash string) error {
	return r.observe("users.consume_password_reset", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			 SET password_hash = $3,
			     reset_token = NULL,
			     reset_token_expiry = NULL,
			     updated_at = NOW()
			 WHERE id = $1 AND reset_token = $2 AND reset_token_expiry > NOW()`,
			id, token, passwordHash,
		)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// token raced away (expired or already consumed)
			return user.ErrNotFound
		}
		return nil
	})
}

// EmailExists / UsernameExists are fast-path pre-checks only; Create still
// maps constraint violations for the race window.

func (r *UsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.observe("users.email_exists", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	})
	return exists, err
}

func (r *UsersRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.observe("users.username_exists", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	})
	return exists, err
}

// CountByStatus backs the admin dashboard.
func (r *UsersRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}

	err := r.observe("users.count_by_status", func() error {
		rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM users GROUP BY status`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				return err
			}
			out[status] = n
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}
