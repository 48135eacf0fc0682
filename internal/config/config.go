package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	// Session / guard policy
	JWTSecret          string
	SessionTTLHours    int
	AdminSessionMaxMin int      // elevated-session ceiling, minutes
	AdminPathPrefixes  []string // UI paths guarded by the admin page guard
	DemoPathPrefixes   []string // demo surface guarded by the cookie sentinel
	LoginPath          string
	DemoLoginPath      string

	// Password reset
	ResetTokenTTLMin int
	AppBaseURL       string // base for reset links put into mail jobs

	// Seeded admin account
	AdminEmail    string
	AdminPassword string
	AdminUsername string

	// Demo surface login (replaces the hardcoded credentials of old)
	DemoEmail    string
	DemoPassword string

	// Redis (session revocation store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Observability
	OTLPEndpoint   string
	AllowedOrigins []string
}

func Load() Config {
	// best effort; real env always wins
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		JWTSecret:          getEnv("JWT_SECRET", "dev-only-secret"),
		SessionTTLHours:    getEnvInt("SESSION_TTL_HOURS", 168),
		AdminSessionMaxMin: getEnvInt("ADMIN_SESSION_MAX_MINUTES", 120),
		AdminPathPrefixes:  getEnvList("ADMIN_PATH_PREFIXES", "/admin"),
		DemoPathPrefixes:   getEnvList("DEMO_PATH_PREFIXES", "/image-generator"),
		LoginPath:          getEnv("LOGIN_PATH", "/auth/login"),
		DemoLoginPath:      getEnv("DEMO_LOGIN_PATH", "/login"),

		ResetTokenTTLMin: getEnvInt("RESET_TOKEN_TTL_MINUTES", 60),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:8080"),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),

		DemoEmail:    getEnv("DEMO_EMAIL", ""),
		DemoPassword: getEnv("DEMO_PASSWORD", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", ""),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", ""),
	}
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) AdminSessionMax() time.Duration {
	return time.Duration(c.AdminSessionMaxMin) * time.Minute
}

func (c Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenTTLMin) * time.Minute
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "inkhub")
	pass := getEnv("DB_PASSWORD", "inkhub")
	name := getEnv("DB_NAME", "inkhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)

	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
