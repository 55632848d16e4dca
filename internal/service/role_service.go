package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm"

	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
	"jobtracker/internal/repository"
)

// RoleSummary is a role with the number of users holding it.
type RoleSummary struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Members int64  `json:"members"`
	Builtin bool   `json:"builtin"`
}

// RoleService manages roles and role membership. It does not authorize the
// caller; AdminService does that before delegating here.
type RoleService interface {
	EnsureRolesCreated(ctx context.Context) error
	EnsureDefaultRole(ctx context.Context, userID uuid.UUID) ([]string, error)
	UserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, userID uuid.UUID, roleName string) error
	RemoveRole(ctx context.Context, userID uuid.UUID, roleName string) error
	ListRoles(ctx context.Context) ([]RoleSummary, error)
	CreateRole(ctx context.Context, name string) (*model.Role, error)
	DeleteRole(ctx context.Context, name string) error
	BootstrapAdmin(ctx context.Context, email, password string) error
}

type roleService struct {
	store  repository.Store
	logger *log.Logger
}

// NewRoleService creates a new role service.
func NewRoleService(store repository.Store) RoleService {
	return &roleService{store: store, logger: log.New("roles")}
}

// EnsureRolesCreated creates any missing built-in role.
func (s *roleService) EnsureRolesCreated(ctx context.Context) error {
	for _, name := range model.BuiltinRoles {
		_, err := s.store.Roles().FindByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("find role %s: %w", name, err)
		}
		if err := s.store.Roles().Create(ctx, &model.Role{Name: name}); err != nil {
			return fmt.Errorf("create role %s: %w", name, err)
		}
		s.logger.Infof("created role %s", name)
	}
	return nil
}

func (s *roleService) EnsureDefaultRole(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var roles []string
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		roles, err = ensureDefaultRole(ctx, tx, userID)
		return err
	})
	return roles, err
}

func (s *roleService) UserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return nil, lookup(err, apperrors.ErrUserNotFound, "find user")
	}
	return s.store.Users().RoleNames(ctx, userID)
}

// AssignRole grants roleName to the user. Granting a role the user already
// holds is a no-op.
func (s *roleService) AssignRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Users().FindByID(ctx, userID); err != nil {
			return lookup(err, apperrors.ErrUserNotFound, "find user")
		}
		role, err := tx.Roles().FindByName(ctx, roleName)
		if err != nil {
			return lookup(err, apperrors.ErrRoleNotFound, "find role")
		}
		roles, err := tx.Users().RoleNames(ctx, userID)
		if err != nil {
			return fmt.Errorf("load roles: %w", err)
		}
		if hasRole(roles, role.Name) {
			return nil
		}
		return tx.Users().AddRole(ctx, userID, role)
	})
}

// RemoveRole revokes roleName. Removing Admin from the only admin fails with ErrLastAdmin.
func (s *roleService) RemoveRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Users().FindByID(ctx, userID); err != nil {
			return lookup(err, apperrors.ErrUserNotFound, "find user")
		}
		role, err := tx.Roles().FindByName(ctx, roleName)
		if err != nil {
			return lookup(err, apperrors.ErrRoleNotFound, "find role")
		}
		roles, err := tx.Users().RoleNames(ctx, userID)
		if err != nil {
			return fmt.Errorf("load roles: %w", err)
		}
		if !hasRole(roles, role.Name) {
			return fmt.Errorf("%w: %s", apperrors.ErrNotInRole, role.Name)
		}
		if role.Name == model.RoleAdmin {
			admins, err := tx.Users().IDsInRole(ctx, model.RoleAdmin)
			if err != nil {
				return fmt.Errorf("count admins: %w", err)
			}
			if err := policy.EnsureNotLastAdmin(admins, userID); err != nil {
				return err
			}
		}
		return tx.Users().RemoveRole(ctx, userID, role)
	})
}

func (s *roleService) ListRoles(ctx context.Context) ([]RoleSummary, error) {
	roles, err := s.store.Roles().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	out := make([]RoleSummary, 0, len(roles))
	for _, r := range roles {
		n, err := s.store.Roles().CountMembers(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("count members: %w", err)
		}
		out = append(out, RoleSummary{ID: r.ID, Name: r.Name, Members: n, Builtin: model.IsBuiltinRole(r.Name)})
	}
	return out, nil
}

func (s *roleService) CreateRole(ctx context.Context, name string) (*model.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", apperrors.ErrValidation)
	}
	if _, err := s.store.Roles().FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: role %s already exists", apperrors.ErrValidation, name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find role: %w", err)
	}
	role := &model.Role{Name: name}
	if err := s.store.Roles().Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

// DeleteRole removes a custom role that nobody holds.
func (s *roleService) DeleteRole(ctx context.Context, name string) error {
	if model.IsBuiltinRole(name) {
		return fmt.Errorf("%w: %s is a built-in role", apperrors.ErrRoleInUse, name)
	}
	return s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		role, err := tx.Roles().FindByName(ctx, name)
		if err != nil {
			return lookup(err, apperrors.ErrRoleNotFound, "find role")
		}
		n, err := tx.Roles().CountMembers(ctx, role.ID)
		if err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: %d users still hold %s", apperrors.ErrRoleInUse, n, name)
		}
		return tx.Roles().Delete(ctx, role.ID)
	})
}

// BootstrapAdmin makes sure the configured account exists and is an admin.
// Nothing happens when email or password is empty.
func (s *roleService) BootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	return s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		user, err := tx.Users().FindByEmail(ctx, email)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			hash, herr := hashPassword(password)
			if herr != nil {
				return herr
			}
			user = &model.User{Email: email, UserName: email, PasswordHash: hash, EmailConfirmed: true}
			if err := tx.Users().Create(ctx, user); err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			s.logger.Infof("created admin account %s", email)
		case err != nil:
			return fmt.Errorf("find admin: %w", err)
		}

		roles, err := tx.Users().RoleNames(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("load roles: %w", err)
		}
		for _, name := range []string{model.RoleUser, model.RoleAdmin} {
			if hasRole(roles, name) {
				continue
			}
			role, err := tx.Roles().FindByName(ctx, name)
			if err != nil {
				return lookup(err, apperrors.ErrRoleNotFound, "find role")
			}
			if err := tx.Users().AddRole(ctx, user.ID, role); err != nil {
				return fmt.Errorf("assign %s: %w", name, err)
			}
		}
		return nil
	})
}
