package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equisy/equisy-api/internal/domain"
)

const userColumns = `id, email, password_hash, is_active, is_superuser, first_name, last_name, profile_image,
	user_type, phone_number, address, state, city, zip, gender, created_on, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// --- Users ---

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		u.ID, u.Email, u.PasswordHash, u.IsActive, u.IsSuperuser,
		u.FirstName, u.LastName, u.ProfileImage, string(u.UserType),
		nilIfEmpty(u.PhoneNumber), nilIfEmpty(u.Address), nilIfEmpty(u.State),
		nilIfEmpty(u.City), nilIfEmpty(u.Zip), nilIfEmpty(string(u.Gender)),
		u.CreatedOn, u.UpdatedAt,
	)
	if err != nil {
		return wrapErr("userRepo.Create", err)
	}

	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("userRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}

	return u, nil
}

// GetByEmail matches case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("userRepo.GetByEmail: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByEmail: %w", err)
	}

	return u, nil
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $1, password_hash = $2, is_active = $3, is_superuser = $4,
		        first_name = $5, last_name = $6, profile_image = $7, user_type = $8,
		        phone_number = $9, address = $10, state = $11, city = $12, zip = $13, gender = $14,
		        updated_at = now()
		 WHERE id = $15`,
		u.Email, u.PasswordHash, u.IsActive, u.IsSuperuser,
		u.FirstName, u.LastName, u.ProfileImage, string(u.UserType),
		nilIfEmpty(u.PhoneNumber), nilIfEmpty(u.Address), nilIfEmpty(u.State),
		nilIfEmpty(u.City), nilIfEmpty(u.Zip), nilIfEmpty(string(u.Gender)),
		u.ID,
	)
	if err != nil {
		return wrapErr("userRepo.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("userRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

// List returns users newest first.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY created_on DESC, id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.List: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("userRepo.List: scan: %w", scanErr)
		}
		users = append(users, u)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("userRepo.List: rows: %w", err)
	}

	return users, nil
}

// --- Memberships ---

func (r *UserRepo) CreateMembership(ctx context.Context, m *domain.Membership) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tenant_memberships (tenant_id, user_id, role, created_at)
		 VALUES ($1, $2, $3, $4)`,
		m.TenantID, m.UserID, m.Role, m.CreatedAt,
	)
	if err != nil {
		return wrapErr("userRepo.CreateMembership", err)
	}

	return nil
}

func (r *UserRepo) GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*domain.Membership, error) {
	var m domain.Membership

	err := r.pool.QueryRow(ctx,
		`SELECT tenant_id, user_id, role, created_at
		 FROM tenant_memberships WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID,
	).Scan(&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("userRepo.GetMembership: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetMembership: %w", err)
	}

	return &m, nil
}

func (r *UserRepo) ListMemberships(ctx context.Context, tenantID uuid.UUID) ([]*domain.Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tenant_id, user_id, role, created_at
		 FROM tenant_memberships WHERE tenant_id = $1
		 ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.ListMemberships: %w", err)
	}
	defer rows.Close()

	var list []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		err = rows.Scan(&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("userRepo.ListMemberships: scan: %w", err)
		}
		list = append(list, &m)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("userRepo.ListMemberships: rows: %w", err)
	}

	return list, nil
}

func (r *UserRepo) DeleteMembership(ctx context.Context, tenantID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM tenant_memberships WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID,
	)
	if err != nil {
		return fmt.Errorf("userRepo.DeleteMembership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("userRepo.DeleteMembership: %w", domain.ErrNotFound)
	}

	return nil
}

// --- Helpers ---

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var userType string
	var phone, address, state, city, zip, gender *string

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsSuperuser,
		&u.FirstName, &u.LastName, &u.ProfileImage, &userType,
		&phone, &address, &state, &city, &zip, &gender,
		&u.CreatedOn, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.UserType = domain.UserType(userType)
	u.PhoneNumber = derefStr(phone)
	u.Address = derefStr(address)
	u.State = derefStr(state)
	u.City = derefStr(city)
	u.Zip = derefStr(zip)
	u.Gender = domain.Gender(derefStr(gender))

	return &u, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
