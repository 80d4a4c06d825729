// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package auth

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role determines which dashboard and resource set a session may access.
type Role string

// Roles. Each role's resources are disjoint; there is no hierarchy.
const (
	RoleAdmin    Role = "admin"
	RoleSecurity Role = "security"
	RoleMember   Role = "member"
)

// Roles lists every known role in display order.
var Roles = []Role{RoleAdmin, RoleSecurity, RoleMember}

// ParseRole converts s to a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", validationError("ROLE_INVALID", "Please select a valid account type")
	}
	return r, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

// DashboardPath returns the landing page for r.
func (r Role) DashboardPath() string {
	if !r.Valid() {
		return "/login"
	}
	return "/" + string(r) + "/dashboard"
}

// Status is the account lifecycle state.
type Status string

// Account states.
const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// ParseStatus converts s to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusActive, StatusSuspended:
		return st, nil
	}
	return "", validationError("STATUS_INVALID", "Status must be one of pending, active, suspended")
}

// Registration field limits.
const (
	MinNameLength    = 2
	MinAddressLength = 10
	MaxFieldLength   = 255
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\s().-]{7,20}$`)
)

// Registration is the input to account creation. Password is plaintext and
// must not outlive the request that carries it.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Role      Role   `json:"userType"`
	Address   string `json:"address"`
}

// Normalize trims whitespace and lowercases the email in place.
func (r *Registration) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	r.Role = Role(strings.ToLower(strings.TrimSpace(string(r.Role))))
}

// Validate checks every field. Call Normalize first.
func (r *Registration) Validate() error {
	if err := validateName(r.FirstName, "First name", "FIRST_NAME"); err != nil {
		return err
	}
	if err := validateName(r.LastName, "Last name", "LAST_NAME"); err != nil {
		return err
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if r.Phone != "" && !phonePattern.MatchString(r.Phone) {
		return validationError("PHONE_INVALID", "Please enter a valid phone number")
	}
	if !r.Role.Valid() {
		return validationError("ROLE_INVALID", "Please select a valid account type")
	}
	if r.Role == RoleMember {
		if r.Address == "" {
			return validationError("ADDRESS_REQUIRED", "Address is required for community members")
		}
		if utf8.RuneCountInString(r.Address) < MinAddressLength {
			return validationError("ADDRESS_TOO_SHORT", "Please provide a complete address (minimum 10 characters)")
		}
	}
	if utf8.RuneCountInString(r.Address) > MaxFieldLength {
		return validationError("ADDRESS_TOO_LONG", "Address must be at most 255 characters")
	}
	return ValidatePassword(r.Password)
}

func validateName(name, label, code string) error {
	switch {
	case name == "":
		return validationError(code+"_REQUIRED", label+" is required")
	case utf8.RuneCountInString(name) < MinNameLength:
		return validationError(code+"_TOO_SHORT", label+" must be at least 2 characters")
	case utf8.RuneCountInString(name) > MaxFieldLength:
		return validationError(code+"_TOO_LONG", label+" must be at most 255 characters")
	case !namePattern.MatchString(name):
		return validationError(code+"_INVALID", label+" can only contain letters and spaces")
	}
	return nil
}

// NormalizeEmail returns the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks email syntax. The email should already be normalized.
func ValidateEmail(email string) error {
	if email == "" {
		return validationError("EMAIL_REQUIRED", "Email is required")
	}
	if len(email) > MaxFieldLength || !emailPattern.MatchString(email) {
		return validationError("EMAIL_INVALID", "Please enter a valid email address")
	}
	return nil
}

// User is a stored account.
type User struct {
	ID             ulid.ULID
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	Phone          string
	Role           Role
	Address        string
	Status         Status
	EmailVerified  bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser creates a User from a validated registration and a password hash.
func NewUser(reg Registration, passwordHash string, status Status) (*User, error) {
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if !reg.Role.Valid() {
		return nil, oops.Code("USER_INVALID_ROLE").Errorf("invalid role %q", reg.Role)
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, oops.Code("USER_INVALID_STATUS").Errorf("invalid status %q", status)
	}
	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Email:        NormalizeEmail(reg.Email),
		PasswordHash: passwordHash,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Phone:        reg.Phone,
		Role:         reg.Role,
		Address:      reg.Address,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsLocked reports whether the account is currently locked out.
func (u *User) IsLocked() bool {
	return IsLockedOut(u.LockedUntil)
}

// RecordFailure increments the failure counter and sets a lockout once the
// threshold is reached.
func (u *User) RecordFailure() {
	u.FailedAttempts++
	u.LockedUntil = ComputeLockoutTime(u.FailedAttempts)
}

// RecordSuccess clears failure tracking.
func (u *User) RecordSuccess() {
	u.FailedAttempts = 0
	u.LockedUntil = nil
}

// DisplayName is the name used in greetings.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Profile returns the password-free view of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:            u.ID.String(),
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		DisplayName:   u.DisplayName(),
		Phone:         u.Phone,
		Role:          u.Role,
		Address:       u.Address,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// Profile is the user record as returned to callers. It has no password field.
type Profile struct {
	ID            string    `json:"uid"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	DisplayName   string    `json:"displayName"`
	Phone         string    `json:"phone,omitempty"`
	Role          Role      `json:"userType"`
	Address       string    `json:"address,omitempty"`
	Status        Status    `json:"status"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateEmail if the email is taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email, case-insensitively. Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update saves profile, verification and lockout fields. Role is never changed.
	Update(ctx context.Context, user *User) error

	// UpdateStatus sets the account status.
	UpdateStatus(ctx context.Context, id ulid.ULID, status Status) error

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
