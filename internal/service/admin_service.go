package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"gorm.io/gorm"

	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
	"jobtracker/internal/repository"
)

const upcomingDeadlineWindow = 14 * 24 * time.Hour

// UserSummary is a user as shown on the admin screens.
type UserSummary struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	UserName       string     `json:"user_name"`
	EmailConfirmed bool       `json:"email_confirmed"`
	PhoneNumber    string     `json:"phone_number,omitempty"`
	Roles          []string   `json:"roles"`
	JobCount       int64      `json:"job_count"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CreateUserInput describes an account created by an admin.
type CreateUserInput struct {
	Email       string
	UserName    string
	Password    string
	PhoneNumber string
	Roles       []string
}

// AdminJob is a job application with its owner's e-mail.
type AdminJob struct {
	model.JobApplication
	UserEmail string `json:"user_email"`
}

// UserJobCount is the number of applications a user owns.
type UserJobCount struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Count  int64     `json:"count"`
}

// Stats summarises the whole system for admins.
type Stats struct {
	TotalUsers        int64                    `json:"total_users"`
	TotalJobs         int64                    `json:"total_jobs"`
	JobsByStatus      []repository.StatusCount `json:"jobs_by_status"`
	JobsPerUser       []UserJobCount           `json:"jobs_per_user"`
	UpcomingDeadlines []AdminJob               `json:"upcoming_deadlines"`
}

// AdminService exposes user, role and reporting operations. Every method
// requires the Admin role.
type AdminService interface {
	ListUsers(ctx context.Context, subject policy.Subject) ([]UserSummary, error)
	GetUser(ctx context.Context, subject policy.Subject, id uuid.UUID) (*UserSummary, error)
	CreateUser(ctx context.Context, subject policy.Subject, in CreateUserInput) (*UserSummary, error)
	DeleteUser(ctx context.Context, subject policy.Subject, id uuid.UUID) error
	AssignRole(ctx context.Context, subject policy.Subject, userID uuid.UUID, role string) error
	RemoveRole(ctx context.Context, subject policy.Subject, userID uuid.UUID, role string) error
	ListRoles(ctx context.Context, subject policy.Subject) ([]RoleSummary, error)
	CreateRole(ctx context.Context, subject policy.Subject, name string) (*model.Role, error)
	DeleteRole(ctx context.Context, subject policy.Subject, name string) error
	AllJobs(ctx context.Context, subject policy.Subject) ([]AdminJob, error)
	Stats(ctx context.Context, subject policy.Subject) (*Stats, error)
}

type adminService struct {
	store   repository.Store
	roles   RoleService
	deleter *AccountDeleter
	now     Clock
	logger  *log.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(store repository.Store, roles RoleService, deleter *AccountDeleter, clock Clock) AdminService {
	return &adminService{
		store:   store,
		roles:   roles,
		deleter: deleter,
		now:     clockOrDefault(clock),
		logger:  log.New("admin"),
	}
}

func (s *adminService) ListUsers(ctx context.Context, subject policy.Subject) ([]UserSummary, error) {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	counts, err := s.jobCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(users))
	for i := range users {
		out = append(out, summarize(&users[i], counts[users[i].ID]))
	}
	return out, nil
}

func (s *adminService) GetUser(ctx context.Context, subject policy.Subject, id uuid.UUID) (*UserSummary, error) {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.userSummary(ctx, id)
}

func (s *adminService) userSummary(ctx context.Context, id uuid.UUID) (*UserSummary, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, apperrors.ErrUserNotFound, "find user")
	}
	n, err := s.store.JobApplications().CountByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	summary := summarize(user, n)
	return &summary, nil
}

// CreateUser creates a confirmed account. Without explicit roles the
// account gets the default User role.
func (s *adminService) CreateUser(ctx context.Context, subject policy.Subject, in CreateUserInput) (*UserSummary, error) {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return nil, err
	}
	in.Email = strings.TrimSpace(in.Email)
	in.UserName = strings.TrimSpace(in.UserName)
	if in.Email == "" {
		return nil, fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	if in.UserName == "" {
		in.UserName = in.Email
	}
	roles := in.Roles
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:          in.Email,
		UserName:       in.UserName,
		PasswordHash:   hash,
		EmailConfirmed: true,
		PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
	}
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
		seen := make(map[string]bool, len(roles))
		for _, name := range roles {
			if seen[name] {
				continue
			}
			seen[name] = true
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
	if err != nil {
		return nil, err
	}
	s.logger.Infof("admin %s created user %s", subject.UserID, user.ID)
	return s.userSummary(ctx, user.ID)
}

// DeleteUser removes an account without a password check. The last admin
// cannot be removed.
func (s *adminService) DeleteUser(ctx context.Context, subject policy.Subject, id uuid.UUID) error {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return err
	}
	return s.deleter.Delete(ctx, id, subject.UserID)
}

func (s *adminService) AssignRole(ctx context.Context, subject policy.Subject, userID uuid.UUID, role string) error {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return err
	}
	return s.roles.AssignRole(ctx, userID, role)
}

func (s *adminService) RemoveRole(ctx context.Context, subject policy.Subject, userID uuid.UUID, role string) error {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return err
	}
	return s.roles.RemoveRole(ctx, userID, role)
}

func (s *adminService) ListRoles(ctx context.Context, subject policy.Subject) ([]RoleSummary, error) {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.roles.ListRoles(ctx)
}

func (s *adminService) CreateRole(ctx context.Context, subject policy.Subject, name string) (*model.Role, error) {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.roles.CreateRole(ctx, name)
}

func (s *adminService) DeleteRole(ctx context.Context, subject policy.Subject, name string) error {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return err
	}
	return s.roles.DeleteRole(ctx, name)
}

func (s *adminService) AllJobs(ctx context.Context, subject policy.Subject) ([]AdminJob, error) {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return nil, err
	}
	apps, err := s.store.JobApplications().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	emails, err := s.emails(ctx)
	if err != nil {
		return nil, err
	}
	return withEmails(apps, emails), nil
}

func (s *adminService) Stats(ctx context.Context, subject policy.Subject) (*Stats, error) {
	if err := policy.RequireRole(subject, model.RoleAdmin); err != nil {
		return nil, err
	}
	apps := s.store.JobApplications()

	users, err := s.store.Users().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	jobs, err := apps.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	byStatus, err := apps.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	perUser, err := apps.CountPerUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("count per user: %w", err)
	}
	now := s.now()
	upcoming, err := apps.ListDeadlinesBetween(ctx, now, now.Add(upcomingDeadlineWindow))
	if err != nil {
		return nil, fmt.Errorf("list deadlines: %w", err)
	}
	emails, err := s.emails(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalUsers:        users,
		TotalJobs:         jobs,
		JobsByStatus:      byStatus,
		JobsPerUser:       make([]UserJobCount, 0, len(perUser)),
		UpcomingDeadlines: withEmails(upcoming, emails),
	}
	if stats.JobsByStatus == nil {
		stats.JobsByStatus = []repository.StatusCount{}
	}
	for _, c := range perUser {
		stats.JobsPerUser = append(stats.JobsPerUser, UserJobCount{UserID: c.UserID, Email: emails[c.UserID], Count: c.Count})
	}
	return stats, nil
}

func (s *adminService) jobCounts(ctx context.Context) (map[uuid.UUID]int64, error) {
	perUser, err := s.store.JobApplications().CountPerUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("count per user: %w", err)
	}
	counts := make(map[uuid.UUID]int64, len(perUser))
	for _, c := range perUser {
		counts[c.UserID] = c.Count
	}
	return counts, nil
}

func (s *adminService) emails(ctx context.Context) (map[uuid.UUID]string, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	emails := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	return emails, nil
}

func withEmails(apps []model.JobApplication, emails map[uuid.UUID]string) []AdminJob {
	out := make([]AdminJob, 0, len(apps))
	for _, a := range apps {
		out = append(out, AdminJob{JobApplication: a, UserEmail: emails[a.UserID]})
	}
	return out
}

func summarize(u *model.User, jobs int64) UserSummary {
	roles := u.RoleNames()
	if roles == nil {
		roles = []string{}
	}
	sort.Strings(roles)
	return UserSummary{
		ID:             u.ID,
		Email:          u.Email,
		UserName:       u.UserName,
		EmailConfirmed: u.EmailConfirmed,
		PhoneNumber:    u.PhoneNumber,
		Roles:          roles,
		JobCount:       jobs,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
	}
}
