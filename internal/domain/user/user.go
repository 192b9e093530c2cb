package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = apperr.NotFound("user not found")
	ErrInvalidEmail       = apperr.Validation("a valid email is required")
	ErrInvalidName        = apperr.Validation("first and last name are required")
	ErrEmailTaken         = apperr.Validation("email is already registered")
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthenticated, "invalid email or password")
	ErrUserDeactivated    = apperr.Forbidden("user account is deactivated")
	ErrAdminOnly          = apperr.Forbidden("admin role required")
	ErrAccountGone        = apperr.New(apperr.ErrUnauthenticated, "account no longer exists, please log in again")
	ErrPasswordMismatch   = apperr.Validation("passwords do not match")
	ErrInvalidResetToken  = apperr.Validation("password reset token is invalid or has expired")
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = time.Hour

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"userId"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// ResetTokenHash is the digest of the outstanding reset token, if any.
	ResetTokenHash string     `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
}

// Clone returns a copy that shares no pointers with u.
func (u *User) Clone() *User {
	c := *u
	if u.ResetExpiresAt != nil {
		expires := *u.ResetExpiresAt
		c.ResetExpiresAt = &expires
	}
	return &c
}

// Principal returns the identity carried in access tokens.
func (u *User) Principal() auth.Principal {
	return auth.Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Repository persists users. CreateUser returns ErrEmailTaken for a duplicate
// email; lookups return ErrUserNotFound.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ResetMailer delivers password reset links.
type ResetMailer interface {
	PasswordReset(ctx context.Context, u *User, resetURL string) error
}

// Service handles account registration and authentication
type Service struct {
	repo    Repository
	hasher  auth.Hasher
	mailer  ResetMailer
	baseURL string
	now     func() time.Time
}

// NewService creates a new user service. mailer may be nil, in which case
// reset tokens are issued but never delivered.
func NewService(repo Repository, hasher auth.Hasher, mailer ResetMailer, baseURL string) *Service {
	return &Service{
		repo:    repo,
		hasher:  hasher,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a customer account
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return s.register(ctx, in, auth.RoleCustomer)
}

// EnsureAdmin creates the bootstrap admin unless an account with that email
// already exists. It reports whether a new account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*User, bool, error) {
	existing, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err == nil {
		if existing.Role != auth.RoleAdmin {
			log.Printf("[User] Bootstrap admin email %s belongs to a %s account", existing.Email, existing.Role)
		}
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	u, err := s.register(ctx, RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Store",
		LastName:  "Admin",
	}, auth.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (s *Service) register(ctx context.Context, in RegisterInput, role string) (*User, error) {
	email := normalizeEmail(in.Email)
	if !IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	if firstName == "" || lastName == "" {
		return nil, ErrInvalidName
	}

	passwordHash, err := s.hashPassword(in.Password, auth.RegistrationPolicy)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	log.Printf("[User] Registered %s account %s", role, u.ID)
	return u, nil
}

// Authenticate checks credentials and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Matches(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrUserDeactivated
	}
	if s.hasher.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u, password)
	}
	return u, nil
}

// rehash upgrades a hash produced at another cost. Failures are only logged.
func (s *Service) rehash(ctx context.Context, u *User, password string) {
	hash, err := s.hasher.Hash(password, auth.PasswordPolicy{})
	if err != nil {
		log.Printf("[User] Failed to rehash password for %s: %v", u.ID, err)
		return
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		log.Printf("[User] Failed to store rehashed password for %s: %v", u.ID, err)
	}
}

// Get returns an account by id
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetUser(ctx, userID)
}

// CheckActive rejects tokens whose account was deactivated or removed after
// the token was issued.
func (s *Service) CheckActive(ctx context.Context, userID string) error {
	u, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return ErrAccountGone
	}
	if err != nil {
		return err
	}
	if !u.IsActive {
		return ErrUserDeactivated
	}
	return nil
}

// RequestPasswordReset issues a one hour reset token for the account with
// email and mails the link. Unknown emails succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token := u.ID + "." + strings.ReplaceAll(uuid.NewString(), "-", "")
	expires := s.now().Add(ResetTokenTTL)
	u.ResetTokenHash = auth.HashToken(token)
	u.ResetExpiresAt = &expires
	u.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if s.mailer == nil {
		log.Printf("[User] Password reset requested for %s but no mailer is configured", u.ID)
		return nil
	}
	if err := s.mailer.PasswordReset(ctx, u, s.baseURL+"/password/reset/"+token); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	log.Printf("[User] Password reset link sent for %s", u.ID)
	return nil
}

// ResetPassword replaces the password of the account token was issued for and
// consumes the token.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if err := auth.ResetPolicy.Check(password); err != nil {
		return apperr.Validation("%s", err.Error())
	}

	userID, _, ok := strings.Cut(token, ".")
	if !ok || userID == "" {
		return ErrInvalidResetToken
	}
	u, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	if u.ResetTokenHash == "" || u.ResetTokenHash != auth.HashToken(token) ||
		u.ResetExpiresAt == nil || !s.now().Before(*u.ResetExpiresAt) {
		return ErrInvalidResetToken
	}

	hash, err := s.hashPassword(password, auth.ResetPolicy)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ResetTokenHash = ""
	u.ResetExpiresAt = nil
	u.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	log.Printf("[User] Password reset for %s", u.ID)
	return nil
}

// hashPassword maps policy failures to validation errors.
func (s *Service) hashPassword(password string, policy auth.PasswordPolicy) (string, error) {
	hash, err := s.hasher.Hash(password, policy)
	if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooWeak) {
		return "", apperr.Validation("%s", err.Error())
	}
	return hash, err
}

// Deactivate blocks future logins for an account
func (s *Service) Deactivate(ctx context.Context, actor auth.Principal, userID string) (*User, error) {
	return s.setActive(ctx, actor, userID, false)
}

// Activate re-enables an account
func (s *Service) Activate(ctx context.Context, actor auth.Principal, userID string) (*User, error) {
	return s.setActive(ctx, actor, userID, true)
}

func (s *Service) setActive(ctx context.Context, actor auth.Principal, userID string, active bool) (*User, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	u.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// IsValidEmail reports whether email is a bare address.
func IsValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
