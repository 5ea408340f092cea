package config

import "time"

// TeamsConfig holds runtime configuration for the teams service.
type TeamsConfig struct {
	Environment   string
	Addr          string
	BuildVersion  string
	LogLevel      string
	StorageDriver string
	DatabaseURL   string
	MigrationsDir string
	AutoMigrate   bool
	AuditActor    string

	IdentityBaseURL     string
	IdentityTimeout     time.Duration
	IdentityTokenSecret string
	IdentityTokenTTL    time.Duration
	IdentityCacheTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitWrite  int
	RateLimitRead   int
	RateLimitWindow time.Duration
	EventBuffer     int
}

// LoadTeamsConfig constructs a TeamsConfig from environment variables.
func LoadTeamsConfig() TeamsConfig {
	return TeamsConfig{
		Environment:   GetString("APP_ENV", "development"),
		Addr:          GetString("TEAMS_ADDR", ":8080"),
		BuildVersion:  GetString("BUILD_VERSION", "dev"),
		LogLevel:      GetString("LOG_LEVEL", "info"),
		StorageDriver: GetString("STORAGE_DRIVER", "postgres"),
		DatabaseURL:   GetString("DATABASE_URL", "postgres://teamup:teamup@db:5432/teams?sslmode=disable"),
		MigrationsDir: GetString("DB_MIGRATIONS_DIR", ""),
		AutoMigrate:   GetBool("DB_AUTO_MIGRATE", true),
		AuditActor:    GetString("AUDIT_ACTOR", "TEAMS_MS"),

		IdentityBaseURL:     GetString("IDENTITY_BASE_URL", "http://accounts:8080"),
		IdentityTimeout:     time.Duration(GetInt("IDENTITY_TIMEOUT_MS", 3000)) * time.Millisecond,
		IdentityTokenSecret: GetString("IDENTITY_TOKEN_SECRET", ""),
		IdentityTokenTTL:    GetDuration("IDENTITY_TOKEN_TTL", time.Minute),
		IdentityCacheTTL:    time.Duration(GetInt("IDENTITY_CACHE_TTL_SECONDS", 60)) * time.Second,

		RedisAddr:     GetString("REDIS_ADDR", ""),
		RedisPassword: GetString("REDIS_PASSWORD", ""),
		RedisDB:       GetInt("REDIS_DB", 0),

		RateLimitWrite:  GetInt("RATE_LIMIT_WRITE", 30),
		RateLimitRead:   GetInt("RATE_LIMIT_READ", 120),
		RateLimitWindow: GetDuration("RATE_LIMIT_WINDOW", time.Minute),
		EventBuffer:     GetInt("EVENT_BUFFER", 64),
	}
}
