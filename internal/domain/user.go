package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type UserType string

const (
	UserTypeTenantOwner UserType = "Tenant Owner"
	UserTypeTenantUser  UserType = "Tenant User"
	UserTypeSupport     UserType = "Support"
	UserTypeDeveloper   UserType = "Developer"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeTenantOwner, UserTypeTenantUser, UserTypeSupport, UserTypeDeveloper:
		return true
	}
	return false
}

type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderUnset, GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// DefaultProfileImage is used when a user has not uploaded a picture.
const DefaultProfileImage = "/profile/profile_default.jpg"

// Membership roles inside a tenant.
const (
	RoleOwner  = "owner"
	RoleStaff  = "staff"
	RoleMember = "member"

	// RoleSuperuser is only issued on the public host.
	RoleSuperuser = "superuser"
)

// ValidRole reports whether role is a tenant membership role.
func ValidRole(role string) bool {
	return role == RoleOwner || role == RoleStaff || role == RoleMember
}

// User is the shared profile; tenants see it through a Membership.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsSuperuser  bool      `json:"is_superuser"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	ProfileImage string    `json:"profile_image"`
	UserType     UserType  `json:"user_type"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	Address      string    `json:"address,omitempty"`
	State        string    `json:"state,omitempty"`
	City         string    `json:"city,omitempty"`
	Zip          string    `json:"zip,omitempty"`
	Gender       Gender    `json:"gender,omitempty"`
	CreatedOn    time.Time `json:"created_on"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates an active user with profile defaults applied.
func NewUser(email, firstName, lastName string) (*User, error) {
	if email == "" {
		return nil, errors.New("user: email is required")
	}
	if len(firstName) > 100 || len(lastName) > 100 {
		return nil, errors.New("user: names must be at most 100 characters")
	}
	now := time.Now()
	return &User{
		ID:           uuid.New(),
		Email:        email,
		IsActive:     true,
		FirstName:    firstName,
		LastName:     lastName,
		ProfileImage: DefaultProfileImage,
		UserType:     UserTypeTenantUser,
		CreatedOn:    now,
		UpdatedAt:    now,
	}, nil
}

// FullName joins first and last name, falling back to the email.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Email
}

// Membership scopes a user to a tenant with a role.
type Membership struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, limit, offset int) ([]*User, error)

	// Memberships
	CreateMembership(ctx context.Context, m *Membership) error
	GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*Membership, error)
	ListMemberships(ctx context.Context, tenantID uuid.UUID) ([]*Membership, error)
	DeleteMembership(ctx context.Context, tenantID, userID uuid.UUID) error
}
