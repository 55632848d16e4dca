package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories so multi-entity operations can run in one transaction.
type Store interface {
	Users() UserRepository
	Roles() RoleRepository
	JobApplications() JobApplicationRepository
	JobPostings() JobPostingRepository
	RecruiterApplications() RecruiterApplicationRepository
	// WithTransaction executes fn within a database transaction. Every repository
	// reached through tx shares the transaction; fn must not use the outer store.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository { return &userRepository{db: s.db} }

func (s *gormStore) Roles() RoleRepository { return &roleRepository{db: s.db} }

func (s *gormStore) JobApplications() JobApplicationRepository {
	return &jobApplicationRepository{db: s.db}
}

func (s *gormStore) JobPostings() JobPostingRepository { return &jobPostingRepository{db: s.db} }

func (s *gormStore) RecruiterApplications() RecruiterApplicationRepository {
	return &recruiterApplicationRepository{db: s.db}
}

// WithTransaction executes a function within a database transaction.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}
