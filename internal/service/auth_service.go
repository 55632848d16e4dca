package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm"

	"jobtracker/internal/auth"
	"jobtracker/internal/email"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/repository"
)

// RegisterInput carries a self-service sign-up.
type RegisterInput struct {
	Email       string
	UserName    string
	Password    string
	PhoneNumber string
}

// AuthResult is returned by every successful sign-in.
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
	Roles     []string    `json:"roles"`
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, []string, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	ExternalLogin(ctx context.Context, email, displayName string) (*AuthResult, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type authService struct {
	store                 repository.Store
	jwtService            *auth.JWTService
	tokenStore            auth.TokenStoreInterface
	mailer                *email.Mailer
	requireConfirmedEmail bool
	now                   Clock
	logger                *log.Logger
}

// AuthOptions tunes AuthService.
type AuthOptions struct {
	RequireConfirmedEmail bool
	Clock                 Clock
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store repository.Store,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	mailer *email.Mailer,
	opts AuthOptions,
) AuthService {
	return &authService{
		store:                 store,
		jwtService:            jwtService,
		tokenStore:            tokenStore,
		mailer:                mailer,
		requireConfirmedEmail: opts.RequireConfirmedEmail,
		now:                   clockOrDefault(opts.Clock),
		logger:                log.New("auth"),
	}
}

// Register creates an account holding the User role and e-mails a confirmation link.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, []string, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.UserName = strings.TrimSpace(in.UserName)
	if in.UserName == "" {
		in.UserName = in.Email
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &model.User{
		Email:        in.Email,
		UserName:     in.UserName,
		PasswordHash: hash,
		PhoneNumber:  in.PhoneNumber,
	}
	var roles []string
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := ensureIdentityAvailable(ctx, tx, uuid.Nil, user.Email, user.UserName); err != nil {
			return err
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		roles, err = ensureDefaultRole(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.sendVerification(ctx, user)
	return user, roles, nil
}

// Login authenticates with e-mail and password.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.Users().FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !checkPassword(user, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if s.requireConfirmedEmail && !user.EmailConfirmed {
		return nil, apperrors.ErrEmailNotConfirmed
	}
	return s.signIn(ctx, user)
}

// ExternalLogin signs in a user whose e-mail was verified by Google, creating
// the account on first use.
func (s *authService) ExternalLogin(ctx context.Context, email, displayName string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: external account has no e-mail", apperrors.ErrValidation)
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.createExternalUser(ctx, email, displayName)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	case !user.EmailConfirmed:
		user.EmailConfirmed = true
		if err := s.store.Users().Update(ctx, user); err != nil {
			return nil, fmt.Errorf("confirm email: %w", err)
		}
	}
	return s.signIn(ctx, user)
}

func (s *authService) createExternalUser(ctx context.Context, email, displayName string) (*model.User, error) {
	user := &model.User{Email: email, EmailConfirmed: true}
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		name, err := availableUserName(ctx, tx, email, displayName)
		if err != nil {
			return err
		}
		user.UserName = name
		if err := tx.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infof("created account %s from external login", user.ID)
	return user, nil
}

// signIn ensures the default role, records the login and issues a token.
func (s *authService) signIn(ctx context.Context, user *model.User) (*AuthResult, error) {
	roles, err := ensureDefaultRole(ctx, s.store, user.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, roles)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user, Roles: roles}, nil
}

// VerifyEmail confirms the address a confirmation token was issued for.
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	claims, user, err := s.redeem(ctx, token, auth.PurposeConfirmEmail)
	if err != nil {
		return err
	}
	if user.EmailConfirmed {
		return nil
	}
	if err := s.consume(ctx, claims); err != nil {
		return err
	}
	user.EmailConfirmed = true
	if err := s.store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	return nil
}

// ResendVerification e-mails a fresh confirmation link. Unknown and already
// confirmed addresses succeed silently.
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.store.Users().FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if !user.EmailConfirmed {
		s.sendVerification(ctx, user)
	}
	return nil
}

// ForgotPassword e-mails a reset link. It succeeds for unknown addresses so
// callers cannot probe which accounts exist.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.Users().FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	token, err := s.jwtService.GenerateActionToken(auth.PurposeResetPassword, user.ID, user.SecurityStamp, "")
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	s.mailer.SendPasswordReset(ctx, user.Email, token)
	return nil
}

// ResetPassword sets a new password. The security stamp rotates, so the
// token and any other outstanding action tokens stop working.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	claims, user, err := s.redeem(ctx, token, auth.PurposeResetPassword)
	if err != nil {
		return err
	}
	if err := s.consume(ctx, claims); err != nil {
		return err
	}
	user.PasswordHash = hash
	user.SecurityStamp = uuid.NewString()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *authService) sendVerification(ctx context.Context, user *model.User) {
	token, err := s.jwtService.GenerateActionToken(auth.PurposeConfirmEmail, user.ID, user.SecurityStamp, "")
	if err != nil {
		s.logger.Errorf("generate confirmation token: %v", err)
		return
	}
	s.mailer.SendVerification(ctx, user.Email, token)
}

// redeem validates an action token and loads the user it belongs to.
func (s *authService) redeem(ctx context.Context, token string, purpose auth.Purpose) (*auth.ActionClaims, *model.User, error) {
	return redeemActionToken(ctx, s.store, s.jwtService, s.tokenStore, token, purpose)
}

func (s *authService) consume(ctx context.Context, claims *auth.ActionClaims) error {
	return consumeActionToken(ctx, s.tokenStore, claims, s.now())
}

func redeemActionToken(
	ctx context.Context,
	store repository.Store,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	token string,
	purpose auth.Purpose,
) (*auth.ActionClaims, *model.User, error) {
	claims, err := jwtService.ValidateActionToken(token, purpose)
	if err != nil {
		return nil, nil, apperrors.ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, nil, apperrors.ErrInvalidToken
	}
	if used, _ := tokenStore.IsConsumed(ctx, claims.ID); used {
		return nil, nil, apperrors.ErrInvalidToken
	}
	user, err := store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, nil, lookup(err, apperrors.ErrInvalidToken, "find user")
	}
	if user.SecurityStamp != claims.Stamp {
		return nil, nil, apperrors.ErrInvalidToken
	}
	return claims, user, nil
}

func consumeActionToken(ctx context.Context, tokenStore auth.TokenStoreInterface, claims *auth.ActionClaims, now time.Time) error {
	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(now)
	}
	first, err := tokenStore.Consume(ctx, claims.ID, ttl)
	if err != nil {
		return err
	}
	if !first {
		return apperrors.ErrInvalidToken
	}
	return nil
}

// ensureIdentityAvailable rejects an e-mail or user name held by anyone but self.
func ensureIdentityAvailable(ctx context.Context, st repository.Store, self uuid.UUID, email, userName string) error {
	if email != "" {
		existing, err := st.Users().FindByEmail(ctx, email)
		if err == nil && existing.ID != self {
			return apperrors.ErrEmailTaken
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check email: %w", err)
		}
	}
	if userName != "" {
		existing, err := st.Users().FindByUserName(ctx, userName)
		if err == nil && existing.ID != self {
			return apperrors.ErrUserNameTaken
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check username: %w", err)
		}
	}
	return nil
}

// availableUserName prefers the e-mail address, then the display name, then
// the e-mail with a numeric suffix.
func availableUserName(ctx context.Context, st repository.Store, email, displayName string) (string, error) {
	candidates := []string{email}
	if displayName = strings.TrimSpace(displayName); displayName != "" {
		candidates = append(candidates, displayName)
	}
	for i := 2; i <= 20; i++ {
		candidates = append(candidates, fmt.Sprintf("%s%d", email, i))
	}
	for _, c := range candidates {
		_, err := st.Users().FindByUserName(ctx, c)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c, nil
		}
		if err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
	}
	return email + "-" + uuid.NewString()[:8], nil
}
