package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobtracker/internal/auth"
	"jobtracker/internal/email"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
	"jobtracker/internal/repository"
)

// Profile is the caller's own account view.
type Profile struct {
	ID                   uuid.UUID  `json:"id"`
	Email                string     `json:"email"`
	UserName             string     `json:"user_name"`
	EmailConfirmed       bool       `json:"email_confirmed"`
	PhoneNumber          string     `json:"phone_number"`
	PhoneNumberConfirmed bool       `json:"phone_number_confirmed"`
	Roles                []string   `json:"roles"`
	ApplicationCount     int64      `json:"application_count"`
	CreatedAt            time.Time  `json:"created_at"`
	LastLoginAt          *time.Time `json:"last_login_at,omitempty"`
}

// UpdateProfileInput holds the editable profile fields; nil means unchanged.
type UpdateProfileInput struct {
	UserName    *string
	PhoneNumber *string
}

// ProfileService manages the caller's own account.
type ProfileService interface {
	GetProfile(ctx context.Context, subject policy.Subject) (*Profile, error)
	UpdateProfile(ctx context.Context, subject policy.Subject, in UpdateProfileInput) (*Profile, error)
	ChangePassword(ctx context.Context, subject policy.Subject, currentPassword, newPassword string) error
	ChangeEmail(ctx context.Context, subject policy.Subject, newEmail, password string) error
	ConfirmEmailChange(ctx context.Context, token string) error
	DeleteAccount(ctx context.Context, subject policy.Subject, password string) error
}

type profileService struct {
	store      repository.Store
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	mailer     *email.Mailer
	deleter    *AccountDeleter
	now        Clock
}

// NewProfileService creates a new profile service.
func NewProfileService(
	store repository.Store,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	mailer *email.Mailer,
	deleter *AccountDeleter,
	clock Clock,
) ProfileService {
	return &profileService{
		store:      store,
		jwtService: jwtService,
		tokenStore: tokenStore,
		mailer:     mailer,
		deleter:    deleter,
		now:        clockOrDefault(clock),
	}
}

func (s *profileService) self(ctx context.Context, subject policy.Subject) (*model.User, error) {
	if err := policy.RequireAuthenticated(subject); err != nil {
		return nil, err
	}
	user, err := s.store.Users().FindByID(ctx, subject.UserID)
	if err != nil {
		return nil, lookup(err, apperrors.ErrUserNotFound, "find user")
	}
	return user, nil
}

func (s *profileService) GetProfile(ctx context.Context, subject policy.Subject) (*Profile, error) {
	user, err := s.self(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user)
}

func (s *profileService) profile(ctx context.Context, user *model.User) (*Profile, error) {
	roles, err := s.store.Users().RoleNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	count, err := s.store.JobApplications().CountByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	if roles == nil {
		roles = []string{}
	}
	return &Profile{
		ID:                   user.ID,
		Email:                user.Email,
		UserName:             user.UserName,
		EmailConfirmed:       user.EmailConfirmed,
		PhoneNumber:          user.PhoneNumber,
		PhoneNumberConfirmed: user.PhoneNumberConfirmed,
		Roles:                roles,
		ApplicationCount:     count,
		CreatedAt:            user.CreatedAt,
		LastLoginAt:          user.LastLoginAt,
	}, nil
}

// UpdateProfile changes the user name and phone number. A new phone number
// starts out unconfirmed.
func (s *profileService) UpdateProfile(ctx context.Context, subject policy.Subject, in UpdateProfileInput) (*Profile, error) {
	user, err := s.self(ctx, subject)
	if err != nil {
		return nil, err
	}
	if in.UserName != nil {
		name := strings.TrimSpace(*in.UserName)
		if name == "" {
			return nil, fmt.Errorf("%w: user name cannot be empty", apperrors.ErrValidation)
		}
		if err := ensureIdentityAvailable(ctx, s.store, user.ID, "", name); err != nil {
			return nil, err
		}
		user.UserName = name
	}
	if in.PhoneNumber != nil && *in.PhoneNumber != user.PhoneNumber {
		user.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
		user.PhoneNumberConfirmed = false
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.profile(ctx, user)
}

// ChangePassword replaces the password. Accounts created through Google
// sign-in have no password yet and may set one without the current value.
func (s *profileService) ChangePassword(ctx context.Context, subject policy.Subject, currentPassword, newPassword string) error {
	user, err := s.self(ctx, subject)
	if err != nil {
		return err
	}
	if user.PasswordHash != "" && !checkPassword(user, currentPassword) {
		return apperrors.ErrIncorrectPassword
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.SecurityStamp = uuid.NewString()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ChangeEmail e-mails a confirmation link to newEmail. The address changes
// only when the link is redeemed.
func (s *profileService) ChangeEmail(ctx context.Context, subject policy.Subject, newEmail, password string) error {
	user, err := s.self(ctx, subject)
	if err != nil {
		return err
	}
	if !checkPassword(user, password) {
		return apperrors.ErrIncorrectPassword
	}
	newEmail = strings.TrimSpace(newEmail)
	if strings.EqualFold(newEmail, user.Email) {
		return fmt.Errorf("%w: new e-mail matches the current one", apperrors.ErrValidation)
	}
	if err := ensureIdentityAvailable(ctx, s.store, user.ID, newEmail, ""); err != nil {
		return err
	}
	token, err := s.jwtService.GenerateActionToken(auth.PurposeChangeEmail, user.ID, user.SecurityStamp, newEmail)
	if err != nil {
		return fmt.Errorf("generate change token: %w", err)
	}
	s.mailer.SendEmailChange(ctx, newEmail, token)
	return nil
}

func (s *profileService) ConfirmEmailChange(ctx context.Context, token string) error {
	claims, user, err := redeemActionToken(ctx, s.store, s.jwtService, s.tokenStore, token, auth.PurposeChangeEmail)
	if err != nil {
		return err
	}
	if claims.NewEmail == "" {
		return apperrors.ErrInvalidToken
	}
	if err := ensureIdentityAvailable(ctx, s.store, user.ID, claims.NewEmail, ""); err != nil {
		return err
	}
	if err := consumeActionToken(ctx, s.tokenStore, claims, s.now()); err != nil {
		return err
	}
	// Accounts that signed up with their e-mail as user name keep the two in step.
	if strings.EqualFold(user.UserName, user.Email) {
		if err := ensureIdentityAvailable(ctx, s.store, user.ID, "", claims.NewEmail); err == nil {
			user.UserName = claims.NewEmail
		}
	}
	user.Email = claims.NewEmail
	user.EmailConfirmed = true
	user.SecurityStamp = uuid.NewString()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	return nil
}

// DeleteAccount verifies the password and removes the caller's account.
func (s *profileService) DeleteAccount(ctx context.Context, subject policy.Subject, password string) error {
	user, err := s.self(ctx, subject)
	if err != nil {
		return err
	}
	if !checkPassword(user, password) {
		return apperrors.ErrIncorrectPassword
	}
	return s.deleter.Delete(ctx, user.ID, subject.UserID)
}
