package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/cache"
	"jobtracker/internal/db"
	"jobtracker/internal/model"
	"jobtracker/internal/repository"
	"jobtracker/internal/service"
	"jobtracker/internal/storage"
)

const sampleSeed = `
roles: [Auditor, Admin]
admin:
  email: admin@example.com
  password: admin-pass
recruiter:
  email: recruiter@example.com
  user_name: recruiter
  password: recruiter-pass
postings:
  - title: Backend Engineer
    company_name: Acme
    description: Build APIs
    requirements: Go
    is_remote: true
  - title: Data Analyst
    company_name: Acme
    description: Crunch numbers
    requirements: SQL
    deadline_days: 10
`

func TestParseSeed(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "valid", raw: sampleSeed},
		{name: "malformed yaml", raw: "roles: [", wantErr: "failed to parse YAML"},
		{
			name:    "postings without recruiter",
			raw:     "postings:\n  - title: X\n    company_name: Y\n",
			wantErr: "postings need a recruiter account",
		},
		{
			name:    "recruiter without admin",
			raw:     "recruiter:\n  email: r@example.com\n  password: pw\n",
			wantErr: "needs an admin account",
		},
		{
			name:    "posting missing description",
			raw:     "admin:\n  email: a@example.com\n  password: pw\nrecruiter:\n  email: r@example.com\n  password: pw\npostings:\n  - title: X\n    company_name: Y\n",
			wantErr: "posting 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := parseSeed([]byte(tt.raw))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, seed.Postings, 2)
			assert.Equal(t, 30, seed.Postings[0].DeadlineDays)
			assert.Equal(t, 10, seed.Postings[1].DeadlineDays)
		})
	}
}

func TestRun_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	gdb, err := db.NewSQLite(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	store := repository.NewStore(gdb)
	roles := service.NewRoleService(store)
	admin := service.NewAdminService(store, roles, service.NewAccountDeleter(store, files, nil, nil, nil, cache.NewMemory()), nil)
	postings := service.NewJobPostingService(store, files, cache.NewMemory(), nil)

	seed, err := parseSeed([]byte(sampleSeed))
	require.NoError(t, err)

	first, err := run(ctx, seed, store, roles, admin, postings)
	require.NoError(t, err)
	assert.Equal(t, seedResult{roles: 1, accounts: 1, postings: 2}, first)

	second, err := run(ctx, seed, store, roles, admin, postings)
	require.NoError(t, err)
	assert.Equal(t, seedResult{skipped: 2}, second)

	recruiter, err := subjectFor(ctx, store, "recruiter@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.RoleUser, model.RoleRecruiter}, recruiter.Roles)

	adminSubject, err := subjectFor(ctx, store, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, adminSubject.IsAdmin())

	_, err = store.Roles().FindByName(ctx, "Auditor")
	assert.NoError(t, err)
}
