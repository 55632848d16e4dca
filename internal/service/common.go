package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"jobtracker/internal/cache"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/repository"
	"jobtracker/internal/storage"
)

const (
	bcryptCost        = 10
	minPasswordLength = 6
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

// lookup translates a missing record into notFound and wraps anything else.
func lookup(err error, notFound error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func checkPassword(user *model.User, password string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// ensureDefaultRole grants the User role to a user who holds no role at all
// and returns the user's roles afterwards. Repeated calls are no-ops.
func ensureDefaultRole(ctx context.Context, st repository.Store, userID uuid.UUID) ([]string, error) {
	roles, err := st.Users().RoleNames(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	if len(roles) > 0 {
		return roles, nil
	}
	role, err := st.Roles().FindByName(ctx, model.RoleUser)
	if err != nil {
		return nil, lookup(err, apperrors.ErrRoleNotFound, "find default role")
	}
	if err := st.Users().AddRole(ctx, userID, role); err != nil {
		return nil, fmt.Errorf("assign default role: %w", err)
	}
	return []string{model.RoleUser}, nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// removeFiles deletes stored CVs after the owning rows are gone. Failures
// leave an orphaned file, which is logged and otherwise harmless.
func removeFiles(ctx context.Context, files storage.FileStore, logger *log.Logger, paths []string) {
	if files == nil {
		return
	}
	for _, p := range paths {
		if err := files.Delete(ctx, p); err != nil {
			logger.Warnf("remove file %s: %v", p, err)
		}
	}
}

func cvPaths(apps []model.JobApplication) []string {
	var paths []string
	for _, a := range apps {
		if a.CvFilePath != nil && *a.CvFilePath != "" {
			paths = append(paths, *a.CvFilePath)
		}
	}
	return paths
}

const (
	activePostingsKey = "jobpostings:active"
	activePostingsTTL = 5 * time.Minute
)

// postingCache caches the public listing of active postings.
type postingCache struct {
	store cache.Store
}

func (c postingCache) get(ctx context.Context) ([]model.JobPosting, bool) {
	if c.store == nil {
		return nil, false
	}
	var postings []model.JobPosting
	if !cache.GetJSON(ctx, c.store, activePostingsKey, &postings) {
		return nil, false
	}
	return postings, true
}

func (c postingCache) set(ctx context.Context, postings []model.JobPosting) {
	if c.store == nil {
		return
	}
	_ = cache.SetJSON(ctx, c.store, activePostingsKey, postings, activePostingsTTL)
}

func (c postingCache) invalidate(ctx context.Context) {
	if c.store == nil {
		return
	}
	_ = c.store.Delete(ctx, activePostingsKey)
}
