package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	SwaggerHost string
	CORSOrigins []string
	ResetDB     bool

	DBDriver   string
	SQLitePath string
	MySQLDSN   string

	// RedisAddr empty selects the in-process cache.
	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret             string
	JWTIssuer             string
	JWTAudience           string
	RequireConfirmedEmail bool

	StorageBackend string
	UploadsDir     string
	MinIO          MinIOConfig

	FrontendURL           string
	VerifyEmailURL        string
	ResetPasswordURL      string
	ConfirmEmailChangeURL string

	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	AMQPURL string

	Google GoogleConfig

	AdminEmail    string
	AdminPassword string
}

// MinIOConfig configures the object storage backend for CV files.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// GoogleConfig configures Google sign-in. Sign-in is disabled when ClientID is empty.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load builds Config from environment with sensible defaults. A .env file in the
// working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	frontend := strings.TrimRight(getEnv("FRONTEND_URL", "https://localhost:3000"), "/")
	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{frontend}),
		ResetDB:     getEnvBool("RESET_DB", false),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		SQLitePath: getEnv("SQLITE_PATH", "jobtracker.db"),
		MySQLDSN:   getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/jobtracker?charset=utf8mb4&parseTime=True&loc=UTC"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:             getEnv("JWT_SECRET", "change-me-to-a-long-random-secret"),
		JWTIssuer:             getEnv("JWT_ISSUER", "jobtracker-api"),
		JWTAudience:           getEnv("JWT_AUDIENCE", "jobtracker-client"),
		RequireConfirmedEmail: getEnvBool("REQUIRE_CONFIRMED_EMAIL", false),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		UploadsDir:     getEnv("UPLOADS_DIR", "uploads"),
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "jobtracker-cvs"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},

		FrontendURL:           frontend,
		VerifyEmailURL:        getEnv("VERIFY_EMAIL_URL", frontend+"/verify-email"),
		ResetPasswordURL:      getEnv("RESET_PASSWORD_URL", frontend+"/reset-password"),
		ConfirmEmailChangeURL: getEnv("CONFIRM_EMAIL_CHANGE_URL", frontend+"/confirm-email-change"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		EmailFrom:      getEnv("EMAIL_FROM", "no-reply@jobtracker.local"),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Job Tracker"),

		AMQPURL: os.Getenv("AMQP_URL"),

		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google-response"),
		},

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
