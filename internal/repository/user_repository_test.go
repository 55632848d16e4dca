package repository

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"jobtracker/internal/db"
	"jobtracker/internal/model"
)

func TestMembersOf_LocksOnMySQL(t *testing.T) {
	mysqlDB, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "jobtracker:secret@tcp(127.0.0.1:3306)/jobtracker?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	sqliteDB, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sql.db")), &gorm.Config{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		db       *gorm.DB
		wantLock bool
	}{
		{name: "mysql", db: mysqlDB, wantLock: true},
		{name: "sqlite", db: sqliteDB, wantLock: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := tt.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				var ids []uuid.UUID
				return membersOf(tx, model.RoleAdmin).Pluck("user_roles.user_id", &ids)
			})
			assert.Contains(t, query, "user_roles")
			assert.Equal(t, tt.wantLock, strings.Contains(query, "FOR UPDATE"))
		})
	}
}

func TestUserRepository_IDsInRoleInsideTransaction(t *testing.T) {
	ctx := context.Background()
	gdb, err := db.NewSQLite(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := NewStore(gdb)
	role := &model.Role{Name: model.RoleAdmin}
	require.NoError(t, store.Roles().Create(ctx, role))

	var want []uuid.UUID
	for _, email := range []string{"a@example.com", "b@example.com"} {
		user := &model.User{
			ID:            uuid.New(),
			Email:         email,
			UserName:      email,
			SecurityStamp: uuid.NewString(),
		}
		require.NoError(t, store.Users().Create(ctx, user))
		require.NoError(t, store.Users().AddRole(ctx, user.ID, role))
		want = append(want, user.ID)
	}

	err = store.WithTransaction(ctx, func(ctx context.Context, tx Store) error {
		ids, err := tx.Users().IDsInRole(ctx, model.RoleAdmin)
		if err != nil {
			return err
		}
		assert.ElementsMatch(t, want, ids)
		return nil
	})
	require.NoError(t, err)
}
