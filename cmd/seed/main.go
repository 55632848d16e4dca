package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"jobtracker/internal/cache"
	"jobtracker/internal/config"
	"jobtracker/internal/db"
	apperrors "jobtracker/internal/errors"
	"jobtracker/internal/model"
	"jobtracker/internal/policy"
	"jobtracker/internal/repository"
	"jobtracker/internal/service"
	"jobtracker/internal/storage"
)

// SeedFile is the YAML document the seeder reads.
type SeedFile struct {
	Roles     []string      `yaml:"roles"`
	Admin     SeedAccount   `yaml:"admin"`
	Recruiter SeedAccount   `yaml:"recruiter"`
	Postings  []SeedPosting `yaml:"postings"`
}

// SeedAccount is a confirmed account to create when missing.
type SeedAccount struct {
	Email    string `yaml:"email"`
	UserName string `yaml:"user_name"`
	Password string `yaml:"password"`
}

// SeedPosting is a demo job posting owned by the seed recruiter.
type SeedPosting struct {
	Title        string `yaml:"title"`
	CompanyName  string `yaml:"company_name"`
	Description  string `yaml:"description"`
	Location     string `yaml:"location"`
	IsRemote     bool   `yaml:"is_remote"`
	SalaryRange  string `yaml:"salary_range"`
	Requirements string `yaml:"requirements"`
	// DeadlineDays is counted from the time the seed runs.
	DeadlineDays int `yaml:"deadline_days"`
}

func main() {
	source := flag.String("file", "seed.yaml", "seed file path or http(s) URL")
	flag.Parse()

	log.Println("Starting seed script...")

	// Load configuration
	cfg := config.Load()

	// Connect to database
	gormDB, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	log.Printf("Reading seed data from: %s", *source)
	raw, err := readSource(*source)
	if err != nil {
		log.Fatalf("Failed to read seed data: %v", err)
	}
	seed, err := parseSeed(raw)
	if err != nil {
		log.Fatalf("Failed to parse seed data: %v", err)
	}

	files, err := storage.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open file storage: %v", err)
	}

	store := repository.NewStore(gormDB)
	roles := service.NewRoleService(store)
	deleter := service.NewAccountDeleter(store, files, nil, nil, nil, cache.NewMemory())
	admin := service.NewAdminService(store, roles, deleter, nil)
	postings := service.NewJobPostingService(store, files, cache.NewMemory(), nil)

	ctx := context.Background()
	result, err := run(ctx, seed, store, roles, admin, postings)
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Roles created: %d", result.roles)
	log.Printf("  - Accounts created: %d", result.accounts)
	log.Printf("  - Postings created: %d", result.postings)
	log.Printf("  - Postings skipped (already present): %d", result.skipped)
}

type seedResult struct {
	roles    int
	accounts int
	postings int
	skipped  int
}

// readSource reads a local file, or fetches the document when source is a URL.
func readSource(source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seed URL returned status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func parseSeed(raw []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(seed.Postings) > 0 && seed.Recruiter.Email == "" {
		return nil, errors.New("postings need a recruiter account")
	}
	if seed.Recruiter.Email != "" && seed.Admin.Email == "" {
		return nil, errors.New("creating the recruiter needs an admin account")
	}
	for i, p := range seed.Postings {
		if p.Title == "" || p.CompanyName == "" || p.Description == "" || p.Requirements == "" {
			return nil, fmt.Errorf("posting %d: title, company_name, description and requirements are required", i)
		}
		if p.DeadlineDays <= 0 {
			seed.Postings[i].DeadlineDays = 30
		}
	}
	return &seed, nil
}

// run is idempotent: existing roles, accounts and postings with the same title are left alone.
func run(
	ctx context.Context,
	seed *SeedFile,
	store repository.Store,
	roles service.RoleService,
	admin service.AdminService,
	postings service.JobPostingService,
) (seedResult, error) {
	var res seedResult

	if err := roles.EnsureRolesCreated(ctx); err != nil {
		return res, fmt.Errorf("ensure roles: %w", err)
	}
	for _, name := range seed.Roles {
		if model.IsBuiltinRole(name) {
			continue
		}
		_, err := roles.CreateRole(ctx, name)
		switch {
		case err == nil:
			res.roles++
		case errors.Is(err, apperrors.ErrValidation):
			// already exists
		default:
			return res, fmt.Errorf("create role %s: %w", name, err)
		}
	}

	if seed.Admin.Email == "" {
		return res, nil
	}
	if err := roles.BootstrapAdmin(ctx, seed.Admin.Email, seed.Admin.Password); err != nil {
		return res, fmt.Errorf("bootstrap admin: %w", err)
	}
	adminSubject, err := subjectFor(ctx, store, seed.Admin.Email)
	if err != nil {
		return res, err
	}

	if seed.Recruiter.Email == "" {
		return res, nil
	}
	_, err = admin.CreateUser(ctx, adminSubject, service.CreateUserInput{
		Email:    seed.Recruiter.Email,
		UserName: seed.Recruiter.UserName,
		Password: seed.Recruiter.Password,
		Roles:    []string{model.RoleUser, model.RoleRecruiter},
	})
	switch {
	case err == nil:
		res.accounts++
	case errors.Is(err, apperrors.ErrEmailTaken):
		log.Printf("Recruiter %s already exists", seed.Recruiter.Email)
	default:
		return res, fmt.Errorf("create recruiter: %w", err)
	}
	recruiter, err := subjectFor(ctx, store, seed.Recruiter.Email)
	if err != nil {
		return res, err
	}

	existing, err := postings.MyPostings(ctx, recruiter)
	if err != nil {
		return res, fmt.Errorf("list recruiter postings: %w", err)
	}
	titles := make(map[string]bool, len(existing))
	for _, p := range existing {
		titles[p.Title] = true
	}

	now := time.Now().UTC()
	for _, p := range seed.Postings {
		if titles[p.Title] {
			res.skipped++
			continue
		}
		_, err := postings.Create(ctx, recruiter, service.JobPostingInput{
			Title:               p.Title,
			CompanyName:         p.CompanyName,
			Description:         p.Description,
			Location:            p.Location,
			IsRemote:            p.IsRemote,
			SalaryRange:         p.SalaryRange,
			Requirements:        p.Requirements,
			ApplicationDeadline: now.AddDate(0, 0, p.DeadlineDays),
		})
		if err != nil {
			return res, fmt.Errorf("create posting %q: %w", p.Title, err)
		}
		res.postings++
	}
	return res, nil
}

func subjectFor(ctx context.Context, store repository.Store, email string) (policy.Subject, error) {
	user, err := store.Users().FindByEmail(ctx, email)
	if err != nil {
		return policy.Subject{}, fmt.Errorf("find %s: %w", email, err)
	}
	names, err := store.Users().RoleNames(ctx, user.ID)
	if err != nil {
		return policy.Subject{}, fmt.Errorf("load roles for %s: %w", email, err)
	}
	return policy.Subject{UserID: user.ID, Email: user.Email, Roles: names}, nil
}
