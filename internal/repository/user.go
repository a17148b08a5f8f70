package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrProfileNotFound = errors.New("profile not found")
)

// UserFilter defines filters for listing users.
type UserFilter struct {
	Role model.Role
}

const userColumns = `id, email, password_hash, full_name, role, is_active, last_login_at, created_at, updated_at`

// CreateUser inserts a user and an empty profile in one transaction.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, full_name, role, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.FullName,
			user.Role,
			user.IsActive,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrEmailExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO user_profiles (user_id, created_at, updated_at)
			VALUES ($1, $2, $2)
		`, user.ID, user.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// ListUsers retrieves a paginated list of users.
func (r *Repository) ListUsers(ctx context.Context, filter UserFilter, cursor string, limit int) ([]*model.User, string, error) {
	qb := newQueryBuilder(`SELECT ` + userColumns + ` FROM users WHERE TRUE`)
	if filter.Role != "" {
		qb.where("role = $%d", filter.Role)
	}
	if err := qb.page("created_at", cursor, limit); err != nil {
		return nil, "", err
	}

	users, err := collect(ctx, r.pool, "users", scanUser, qb.sql, qb.args...)
	if err != nil {
		return nil, "", err
	}

	users, next := trimPage(users, limit, func(u *model.User) (string, time.Time) { return u.ID, u.CreatedAt })
	return users, next, nil
}

// UpdateUser updates a user's mutable fields.
func (r *Repository) UpdateUser(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET full_name = $2, role = $3, is_active = $4
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query, user.ID, user.FullName, user.Role, user.IsActive).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePasswordHash replaces a user's stored password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	result, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsersByRole returns the number of users per role.
func (r *Repository) CountUsersByRole(ctx context.Context) (map[model.Role]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Role]int64)
	for rows.Next() {
		var role model.Role
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("failed to scan user count: %w", err)
		}
		counts[role] = n
	}
	return counts, rows.Err()
}

// GetProfile retrieves the profile of a user.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	query := `
		SELECT user_id, headline, bio, location, phone, website, skills,
		       years_experience, open_to_work, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`

	var p model.UserProfile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Headline,
		&p.Bio,
		&p.Location,
		&p.Phone,
		&p.Website,
		pq.Array(&p.Skills),
		&p.YearsExperience,
		&p.OpenToWork,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	return &p, nil
}

// UpsertProfile replaces the profile of a user.
func (r *Repository) UpsertProfile(ctx context.Context, p *model.UserProfile) error {
	query := `
		INSERT INTO user_profiles (user_id, headline, bio, location, phone, website, skills, years_experience, open_to_work)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			headline = EXCLUDED.headline,
			bio = EXCLUDED.bio,
			location = EXCLUDED.location,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			skills = EXCLUDED.skills,
			years_experience = EXCLUDED.years_experience,
			open_to_work = EXCLUDED.open_to_work
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.UserID,
		p.Headline,
		p.Bio,
		p.Location,
		p.Phone,
		p.Website,
		pq.Array(p.Skills),
		p.YearsExperience,
		p.OpenToWork,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Role,
		&user.IsActive,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
