package service

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/auth"
	"jobtracker/internal/cache"
	"jobtracker/internal/db"
	"jobtracker/internal/email"
	"jobtracker/internal/metrics"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
	"jobtracker/internal/queue"
	"jobtracker/internal/repository"
	"jobtracker/internal/storage"
)

var errInjected = errors.New("injected failure")

// outbox records every e-mail the services send.
type outbox struct {
	mu   sync.Mutex
	sent []email.Message
}

func (o *outbox) Send(_ context.Context, msg email.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) messages() []email.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]email.Message(nil), o.sent...)
}

var tokenParam = regexp.MustCompile(`[?&]token=([^&\s"<]+)`)

// lastToken extracts the action token from the newest message to addr.
func (o *outbox) lastToken(t *testing.T, addr string) string {
	t.Helper()
	msgs := o.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].To != addr {
			continue
		}
		m := tokenParam.FindStringSubmatch(msgs[i].Text)
		require.Len(t, m, 2, "message has no token link")
		token, err := url.QueryUnescape(m[1])
		require.NoError(t, err)
		return token
	}
	t.Fatalf("no message sent to %s", addr)
	return ""
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, v)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []queue.EventType
	for _, v := range p.events {
		if ev, ok := v.(queue.Event); ok {
			out = append(out, ev.Type)
		}
	}
	return out
}

type testEnv struct {
	store      repository.Store
	jwt        *auth.JWTService
	tokens     *auth.TokenStore
	cache      *cache.Memory
	files      *storage.LocalStore
	uploadsDir string
	outbox     *outbox
	events     *recordingPublisher
	metrics    *metrics.Metrics
	now        time.Time

	roles      RoleService
	auth       AuthService
	profiles   ProfileService
	deleter    *AccountDeleter
	jobs       JobApplicationService
	postings   JobPostingService
	recruiters RecruiterService
	admin      AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil)
}

// newTestEnvWithStore builds the services on a fresh SQLite database. wrap,
// when set, decorates the store the services see.
func newTestEnvWithStore(t *testing.T, wrap func(repository.Store) repository.Store) *testEnv {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	base := repository.NewStore(gdb)
	store := base
	if wrap != nil {
		store = wrap(base)
	}

	uploads := t.TempDir()
	files, err := storage.NewLocalStore(uploads)
	require.NoError(t, err)

	env := &testEnv{
		store:      store,
		jwt:        auth.NewJWTService("test-secret", "jobtracker-test", "jobtracker-test-clients"),
		cache:      cache.NewMemory(),
		files:      files,
		uploadsDir: uploads,
		outbox:     &outbox{},
		events:     &recordingPublisher{},
		metrics:    metrics.New(),
		now:        time.Now().UTC().Truncate(time.Second),
	}
	env.tokens = auth.NewTokenStore(env.cache)
	clock := func() time.Time { return env.now }
	mailer := email.NewMailer(env.outbox, email.Links{
		VerifyEmail:        "https://app.example.com/verify-email",
		ResetPassword:      "https://app.example.com/reset-password",
		ConfirmEmailChange: "https://app.example.com/confirm-email",
	})

	env.roles = NewRoleService(store)
	env.auth = NewAuthService(store, env.jwt, env.tokens, mailer, AuthOptions{Clock: clock})
	env.deleter = NewAccountDeleter(store, files, mailer, env.events, env.metrics, env.cache)
	env.profiles = NewProfileService(store, env.jwt, env.tokens, mailer, env.deleter, clock)
	env.jobs = NewJobApplicationService(store, files, mailer, env.events, env.metrics, clock)
	env.postings = NewJobPostingService(store, files, env.cache, clock)
	env.recruiters = NewRecruiterService(store, mailer, env.events, env.metrics, clock)
	env.admin = NewAdminService(store, env.roles, env.deleter, clock)

	require.NoError(t, env.roles.EnsureRolesCreated(ctx))
	return env
}

// newUser registers an account and grants it the extra roles.
func (e *testEnv) newUser(t *testing.T, emailAddr, password string, roles ...string) policy.Subject {
	t.Helper()
	ctx := context.Background()
	user, _, err := e.auth.Register(ctx, RegisterInput{Email: emailAddr, Password: password})
	require.NoError(t, err)
	for _, r := range roles {
		require.NoError(t, e.roles.AssignRole(ctx, user.ID, r))
	}
	return e.subject(t, user.ID)
}

// subject reads the user's current roles, as a freshly issued token would carry them.
func (e *testEnv) subject(t *testing.T, id uuid.UUID) policy.Subject {
	t.Helper()
	user, err := e.store.Users().FindByID(context.Background(), id)
	require.NoError(t, err)
	roles, err := e.roles.UserRoles(context.Background(), id)
	require.NoError(t, err)
	return policy.Subject{UserID: user.ID, Email: user.Email, Roles: roles}
}

func (e *testEnv) newPosting(t *testing.T, recruiter policy.Subject, title string) *model.JobPosting {
	t.Helper()
	posting, err := e.postings.Create(context.Background(), recruiter, JobPostingInput{
		Title:               title,
		CompanyName:         "Acme",
		Description:         "Build things",
		Requirements:        "Go",
		ApplicationDeadline: e.now.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return posting
}

// faultyStore fails selected user repository calls, inside and outside transactions.
type faultyStore struct {
	repository.Store
	failAddRole    bool
	failUserDelete bool
}

func (s *faultyStore) Users() repository.UserRepository {
	return &faultyUsers{UserRepository: s.Store.Users(), store: s}
}

func (s *faultyStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	return s.Store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		return fn(ctx, &faultyStore{Store: tx, failAddRole: s.failAddRole, failUserDelete: s.failUserDelete})
	})
}

type faultyUsers struct {
	repository.UserRepository
	store *faultyStore
}

func (u *faultyUsers) AddRole(ctx context.Context, userID uuid.UUID, role *model.Role) error {
	if u.store.failAddRole && role.Name == model.RoleRecruiter {
		return errInjected
	}
	return u.UserRepository.AddRole(ctx, userID, role)
}

func (u *faultyUsers) Delete(ctx context.Context, id uuid.UUID) error {
	if u.store.failUserDelete {
		return errInjected
	}
	return u.UserRepository.Delete(ctx, id)
}
