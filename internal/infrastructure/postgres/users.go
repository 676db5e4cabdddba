package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-api-users/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userSelect = `SELECT user_id, email, password_hash, first_name, last_name, bio, role, image,
	email_verified_at, deleted_at, created_at, updated_at FROM users`

var userColumns = map[string]bool{
	domain.FieldEmail:           true,
	domain.FieldPasswordHash:    true,
	domain.FieldFirstName:       true,
	domain.FieldLastName:        true,
	domain.FieldBio:             true,
	domain.FieldRole:            true,
	domain.FieldImage:           true,
	domain.FieldEmailVerifiedAt: true,
	domain.FieldDeletedAt:       true,
}

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (user_id, email, password_hash, first_name, last_name, bio, role, image,
			email_verified_at, deleted_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email, password_hash = EXCLUDED.password_hash,
			first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			bio = EXCLUDED.bio, role = EXCLUDED.role, image = EXCLUDED.image,
			email_verified_at = EXCLUDED.email_verified_at, deleted_at = EXCLUDED.deleted_at,
			updated_at = EXCLUDED.updated_at
	`, u.UserID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Bio, u.Role, u.Image,
		u.EmailVerifiedAt, u.DeletedAt, u.CreatedAt, u.UpdatedAt)
	return mapError(err, "email")
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.getOne(ctx, userSelect+` WHERE user_id = $1`, userID)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, userSelect+` WHERE email = $1`, email)
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]any) error {
	q, args, err := buildUpdateSQL("users", "user_id", userColumns, updates, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return mapError(err, "email")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) SoftDelete(ctx context.Context, userID string) error {
	return r.Update(ctx, userID, map[string]any{domain.FieldDeletedAt: time.Now().UTC()})
}

// List filters, orders and paginates in SQL. The total is counted separately
// so it stays correct for pages past the end.
func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	if f.ExcludeUserID != "" {
		args = append(args, f.ExcludeUserID)
		where = append(where, fmt.Sprintf("user_id <> $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, likePattern(q))
		n := len(args)
		where = append(where, fmt.Sprintf(
			`(email ILIKE $%[1]d ESCAPE '\' OR first_name ILIKE $%[1]d ESCAPE '\' OR last_name ILIKE $%[1]d ESCAPE '\')`, n))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit < 1 {
		limit = total
	}
	pageArgs := append(args, limit, f.Offset())
	rows, err := r.db.Query(ctx,
		userSelect+cond+fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(pageArgs)-1, len(pageArgs)),
		pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, q, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return u, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.UserID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Bio, &u.Role, &u.Image,
		&u.EmailVerifiedAt, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// likePattern wraps q for a substring ILIKE, escaping its wildcards.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
