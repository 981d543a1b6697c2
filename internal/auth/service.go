package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/equisy/equisy-api/internal/domain"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserAlreadyExists  = errors.New("auth: user already exists")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrWeakPassword       = errors.New("auth: password must be at least 8 characters")
	ErrNotMember          = errors.New("auth: user is not a member of this tenant")
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16

	minPasswordLen = 8
)

// TokenPair is returned by Login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Role         string
}

// RegisterInput carries the profile of a new tenant user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Member is a user seen through one tenant's membership.
type Member struct {
	User *domain.User
	Role string
}

// Service provides authentication and membership operations.
type Service struct {
	users      domain.UserRepository
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(users domain.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a user and makes it a member of tenantID.
func (s *Service) Register(ctx context.Context, tenantID uuid.UUID, in RegisterInput) (*domain.User, error) {
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	if err = s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	err = s.users.CreateMembership(ctx, &domain.Membership{
		TenantID:  tenantID,
		UserID:    user.ID,
		Role:      domain.RoleMember,
		CreatedAt: user.CreatedOn,
	})
	if err != nil {
		return nil, fmt.Errorf("auth.Register: membership: %w", err)
	}

	return user, nil
}

// CreateSuperuser creates a user allowed on the public host.
func (s *Service) CreateSuperuser(ctx context.Context, in RegisterInput) (*domain.User, error) {
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("auth.CreateSuperuser: %w", err)
	}

	user.IsSuperuser = true
	user.UserType = domain.UserTypeDeveloper

	if err = s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth.CreateSuperuser: %w", err)
	}
	return user, nil
}

func (s *Service) newUser(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if len(in.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrUserAlreadyExists
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	user, err := domain.NewUser(email, in.FirstName, in.LastName)
	if err != nil {
		return nil, err
	}

	user.PasswordHash, err = hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the password and issues tokens. On a tenant host
// (tenantID set) the role comes from the membership; on the public host
// only superusers may log in.
func (s *Service) Login(ctx context.Context, tenantID uuid.UUID, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil || !user.IsActive || !verifyPassword(password, user.PasswordHash) {
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	role, err := s.roleFor(ctx, tenantID, user)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	pair := &TokenPair{Role: role}

	pair.AccessToken, err = IssueAccessToken(s.jwtSecret, tenantID, user.ID, role, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	pair.RefreshToken, err = IssueRefreshToken(s.jwtSecret, tenantID, user.ID, role, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	return pair, nil
}

func (s *Service) roleFor(ctx context.Context, tenantID uuid.UUID, user *domain.User) (string, error) {
	if tenantID == uuid.Nil {
		if !user.IsSuperuser {
			return "", ErrInvalidCredentials
		}
		return domain.RoleSuperuser, nil
	}

	m, err := s.users.GetMembership(ctx, tenantID, user.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", ErrNotMember
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// RefreshToken validates a refresh token and issues a new access token
// carrying the user's current role.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	if claims.TokenType != tokenTypeRefresh {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrInvalidToken)
	}

	tenantID, userID, err := claims.IDs()
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil || !user.IsActive {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrUserNotFound)
	}

	role, err := s.roleFor(ctx, tenantID, user)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	newAccess, err := IssueAccessToken(s.jwtSecret, tenantID, user.ID, role, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	return newAccess, nil
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth.GetUser: %w", err)
	}

	return user, nil
}

// ListMembers returns the users of a tenant with their roles.
func (s *Service) ListMembers(ctx context.Context, tenantID uuid.UUID) ([]Member, error) {
	memberships, err := s.users.ListMemberships(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("auth.ListMembers: %w", err)
	}

	out := make([]Member, 0, len(memberships))
	for _, m := range memberships {
		u, err := s.users.GetByID(ctx, m.UserID)
		if err != nil {
			return nil, fmt.Errorf("auth.ListMembers: %w", err)
		}
		out = append(out, Member{User: u, Role: m.Role})
	}
	return out, nil
}

// AddMember gives an existing user a role in tenantID.
func (s *Service) AddMember(ctx context.Context, tenantID uuid.UUID, email, role string) (*Member, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("auth.AddMember: invalid role %q", role)
	}

	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("auth.AddMember: %w", ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("auth.AddMember: %w", err)
	}

	err = s.users.CreateMembership(ctx, &domain.Membership{
		TenantID:  tenantID,
		UserID:    u.ID,
		Role:      role,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("auth.AddMember: %w", err)
	}
	return &Member{User: u, Role: role}, nil
}

// RemoveMember revokes a user's membership. The last owner cannot be
// removed.
func (s *Service) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	m, err := s.users.GetMembership(ctx, tenantID, userID)
	if err != nil {
		return fmt.Errorf("auth.RemoveMember: %w", err)
	}

	if m.Role == domain.RoleOwner {
		all, err := s.users.ListMemberships(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("auth.RemoveMember: %w", err)
		}
		owners := 0
		for _, o := range all {
			if o.Role == domain.RoleOwner {
				owners++
			}
		}
		if owners <= 1 {
			return fmt.Errorf("auth.RemoveMember: last owner: %w", domain.ErrConflict)
		}
	}

	if err = s.users.DeleteMembership(ctx, tenantID, userID); err != nil {
		return fmt.Errorf("auth.RemoveMember: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// verifyPassword checks a password against an argon2id hash.
func verifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expectedHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}
