package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"jobtracker/internal/auth"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/repository"
)

// MockStore is a mock implementation of repository.Store. Transactions run
// the callback against the same mock.
type MockStore struct {
	users *MockUserRepository
	roles *MockRoleRepository
}

func newMockStore() *MockStore {
	return &MockStore{users: new(MockUserRepository), roles: new(MockRoleRepository)}
}

func (m *MockStore) Users() repository.UserRepository { return m.users }

func (m *MockStore) Roles() repository.RoleRepository { return m.roles }

func (m *MockStore) JobApplications() repository.JobApplicationRepository { return nil }

func (m *MockStore) JobPostings() repository.JobPostingRepository { return nil }

func (m *MockStore) RecruiterApplications() repository.RecruiterApplicationRepository { return nil }

func (m *MockStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return fn(ctx, m)
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUserName(ctx context.Context, userName string) (*model.User, error) {
	args := m.Called(ctx, userName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) AddRole(ctx context.Context, userID uuid.UUID, role *model.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *MockUserRepository) RemoveRole(ctx context.Context, userID uuid.UUID, role *model.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *MockUserRepository) RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) IDsInRole(ctx context.Context, roleName string) ([]uuid.UUID, error) {
	args := m.Called(ctx, roleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockRoleRepository is a mock implementation of RoleRepository.
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Create(ctx context.Context, role *model.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRoleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Role), args.Error(1)
}

func (m *MockRoleRepository) List(ctx context.Context) ([]model.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Role), args.Error(1)
}

func (m *MockRoleRepository) CountMembers(ctx context.Context, id uint) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, tokenID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenStore) IsConsumed(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret", "jobtracker", "jobtracker-clients")
}

func TestAuthService_Register(t *testing.T) {
	userRole := &model.Role{ID: 2, Name: model.RoleUser}

	tests := []struct {
		name          string
		input         RegisterInput
		setupMock     func(*MockStore)
		expectedRoles []string
		expectedError error
	}{
		{
			name:  "successful registration",
			input: RegisterInput{Email: "test@example.com", Password: "password123"},
			setupMock: func(m *MockStore) {
				m.users.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.users.On("FindByUserName", mock.Anything, "test@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.users.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
				m.users.On("RoleNames", mock.Anything, mock.Anything).Return([]string{}, nil)
				m.roles.On("FindByName", mock.Anything, model.RoleUser).Return(userRole, nil)
				m.users.On("AddRole", mock.Anything, mock.Anything, userRole).Return(nil)
			},
			expectedRoles: []string{model.RoleUser},
		},
		{
			name:  "email already registered",
			input: RegisterInput{Email: "existing@example.com", Password: "password123"},
			setupMock: func(m *MockStore) {
				m.users.On("FindByEmail", mock.Anything, "existing@example.com").
					Return(&model.User{ID: uuid.New(), Email: "existing@example.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:  "user name already taken",
			input: RegisterInput{Email: "new@example.com", UserName: "taken", Password: "password123"},
			setupMock: func(m *MockStore) {
				m.users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.users.On("FindByUserName", mock.Anything, "taken").
					Return(&model.User{ID: uuid.New(), UserName: "taken"}, nil)
			},
			expectedError: apperrors.ErrUserNameTaken,
		},
		{
			name:          "password too short",
			input:         RegisterInput{Email: "short@example.com", Password: "12345"},
			setupMock:     func(*MockStore) {},
			expectedError: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			tt.setupMock(store)
			service := NewAuthService(store, newTestJWTService(), new(MockTokenStore), nil, AuthOptions{})

			user, roles, err := service.Register(context.Background(), tt.input)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.input.Email, user.Email)
				assert.Equal(t, tt.input.Email, user.UserName)
				assert.NotEmpty(t, user.PasswordHash)
				assert.NotEqual(t, tt.input.Password, user.PasswordHash)
				assert.Equal(t, tt.expectedRoles, roles)
			}

			store.users.AssertExpectations(t)
			store.roles.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	userID := uuid.New()

	tests := []struct {
		name           string
		email          string
		password       string
		requireConfirm bool
		setupMock      func(*MockStore)
		expectedError  error
	}{
		{
			name:     "successful login",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(m *MockStore) {
				m.users.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           userID,
					Email:        "test@example.com",
					PasswordHash: string(hashedPassword),
				}, nil)
				m.users.On("RoleNames", mock.Anything, userID).Return([]string{model.RoleRecruiter, model.RoleUser}, nil)
				m.users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.LastLoginAt != nil
				})).Return(nil)
			},
		},
		{
			name:     "invalid credentials - user not found",
			email:    "notfound@example.com",
			password: "password123",
			setupMock: func(m *MockStore) {
				m.users.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "invalid credentials - wrong password",
			email:    "test@example.com",
			password: "wrong",
			setupMock: func(m *MockStore) {
				m.users.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           userID,
					Email:        "test@example.com",
					PasswordHash: string(hashedPassword),
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:           "unconfirmed email",
			email:          "test@example.com",
			password:       "password123",
			requireConfirm: true,
			setupMock: func(m *MockStore) {
				m.users.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           userID,
					Email:        "test@example.com",
					PasswordHash: string(hashedPassword),
				}, nil)
			},
			expectedError: apperrors.ErrEmailNotConfirmed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			tt.setupMock(store)
			jwtService := newTestJWTService()
			service := NewAuthService(store, jwtService, new(MockTokenStore), nil, AuthOptions{RequireConfirmedEmail: tt.requireConfirm})

			result, err := service.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, result.Token)
				assert.Equal(t, []string{model.RoleRecruiter, model.RoleUser}, result.Roles)

				claims, err := jwtService.ValidateToken(result.Token)
				assert.NoError(t, err)
				assert.Equal(t, userID, claims.UserID)
				assert.Equal(t, result.Roles, claims.Roles)
			}

			store.users.AssertExpectations(t)
		})
	}
}

func TestAuthService_ResetPassword(t *testing.T) {
	userID := uuid.New()
	jwtService := newTestJWTService()

	tests := []struct {
		name          string
		stamp         string
		setupMock     func(*MockStore, *MockTokenStore)
		expectedError error
	}{
		{
			name:  "successful reset",
			stamp: "stamp-1",
			setupMock: func(m *MockStore, tokens *MockTokenStore) {
				tokens.On("IsConsumed", mock.Anything, mock.Anything).Return(false, nil)
				tokens.On("Consume", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
				m.users.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, SecurityStamp: "stamp-1"}, nil)
				m.users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.SecurityStamp != "stamp-1" && u.PasswordHash != ""
				})).Return(nil)
			},
		},
		{
			name:  "token already used",
			stamp: "stamp-1",
			setupMock: func(_ *MockStore, tokens *MockTokenStore) {
				tokens.On("IsConsumed", mock.Anything, mock.Anything).Return(true, nil)
			},
			expectedError: apperrors.ErrInvalidToken,
		},
		{
			name:  "security stamp rotated",
			stamp: "stale",
			setupMock: func(m *MockStore, tokens *MockTokenStore) {
				tokens.On("IsConsumed", mock.Anything, mock.Anything).Return(false, nil)
				m.users.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, SecurityStamp: "stamp-2"}, nil)
			},
			expectedError: apperrors.ErrInvalidToken,
		},
		{
			name:  "lost the race to consume",
			stamp: "stamp-1",
			setupMock: func(m *MockStore, tokens *MockTokenStore) {
				tokens.On("IsConsumed", mock.Anything, mock.Anything).Return(false, nil)
				tokens.On("Consume", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
				m.users.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, SecurityStamp: "stamp-1"}, nil)
			},
			expectedError: apperrors.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			tokens := new(MockTokenStore)
			tt.setupMock(store, tokens)
			service := NewAuthService(store, jwtService, tokens, nil, AuthOptions{})

			token, err := jwtService.GenerateActionToken(auth.PurposeResetPassword, userID, tt.stamp, "")
			assert.NoError(t, err)

			err = service.ResetPassword(context.Background(), token, "new-password")
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			store.users.AssertExpectations(t)
			tokens.AssertExpectations(t)
		})
	}
}
