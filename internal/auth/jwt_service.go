package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// AccessTokenExpiry is the duration for which access tokens are valid.
	AccessTokenExpiry = time.Hour
	// EmailConfirmationExpiry bounds email confirmation links.
	EmailConfirmationExpiry = 24 * time.Hour
	// PasswordResetExpiry bounds password reset links.
	PasswordResetExpiry = 30 * time.Minute
	// EmailChangeExpiry bounds email change confirmation links.
	EmailChangeExpiry = 24 * time.Hour
)

// Purpose names what a one-time action token authorizes.
type Purpose string

const (
	PurposeConfirmEmail  Purpose = "confirm_email"
	PurposeResetPassword Purpose = "reset_password"
	PurposeChangeEmail   Purpose = "change_email"
)

// Expiry returns the lifetime of tokens issued for p.
func (p Purpose) Expiry() time.Duration {
	switch p {
	case PurposeResetPassword:
		return PasswordResetExpiry
	case PurposeChangeEmail:
		return EmailChangeExpiry
	default:
		return EmailConfirmationExpiry
	}
}

var (
	errUnexpectedSigningMethod = errors.New("unexpected signing method")
	errInvalidToken            = errors.New("invalid token")
)

// Claims represents access token claims. The subject is the user id.
type Claims struct {
	UserID uuid.UUID `json:"uid"`
	Email  string    `json:"email"`
	Roles  []string  `json:"roles"`
	jwt.RegisteredClaims
}

// ActionClaims represents a one-time action token. Stamp binds the token to
// the user's security stamp so rotating the stamp revokes it.
type ActionClaims struct {
	Purpose  Purpose `json:"purpose"`
	Stamp    string  `json:"stamp"`
	NewEmail string  `json:"new_email,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject as a user id.
func (c *ActionClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewJWTService creates a new JWT service signing with secret and stamping
// issuer and audience on every token.
func NewJWTService(secret, issuer, audience string) *JWTService {
	return &JWTService{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// GenerateAccessToken generates a new access token carrying one role claim per role.
func (s *JWTService) GenerateAccessToken(userID uuid.UUID, email string, roles []string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(AccessTokenExpiry)
	if roles == nil {
		roles = []string{}
	}
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        generateTokenID(),
			Subject:   userID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates an access token and returns the claims. Signature,
// expiry, issuer and audience are all checked.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenString, claims, s.audience); err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, errInvalidToken
	}
	return claims, nil
}

// GenerateActionToken signs a one-time token for purpose. Action tokens use
// a purpose-scoped audience so they can never pass as access tokens.
func (s *JWTService) GenerateActionToken(purpose Purpose, userID uuid.UUID, stamp, newEmail string) (string, error) {
	now := s.now()
	claims := &ActionClaims{
		Purpose:  purpose,
		Stamp:    stamp,
		NewEmail: newEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        generateTokenID(),
			Subject:   userID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.actionAudience(purpose)},
			ExpiresAt: jwt.NewNumericDate(now.Add(purpose.Expiry())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateActionToken validates a one-time token issued for purpose.
func (s *JWTService) ValidateActionToken(tokenString string, purpose Purpose) (*ActionClaims, error) {
	claims := &ActionClaims{}
	if err := s.parse(tokenString, claims, s.actionAudience(purpose)); err != nil {
		return nil, err
	}
	if claims.Purpose != purpose || claims.ID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

func (s *JWTService) actionAudience(purpose Purpose) string {
	return s.audience + "/" + string(purpose)
}

type registered interface {
	jwt.Claims
	VerifyIssuer(cmp string, req bool) bool
	VerifyAudience(cmp string, req bool) bool
}

func (s *JWTService) parse(tokenString string, claims registered, audience string) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return errInvalidToken
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return fmt.Errorf("%w: issuer", errInvalidToken)
	}
	if !claims.VerifyAudience(audience, true) {
		return fmt.Errorf("%w: audience", errInvalidToken)
	}
	return nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	return uuid.New().String()
}
