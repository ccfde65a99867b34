package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/xo/dburl"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"wagerBot/models"
	"wagerBot/scheduler"
	"wagerBot/services/extService"
)

type Config struct {
	DiscordToken  string
	DatabaseURL   string
	RedisURL      string
	VerifierURL   string
	VerifierToken string
	NarratorURL   string
	NarratorToken string
	HTTP          extService.HTTPOptions
	SweepSchedule string
	StatsSchedule string
	Environment   string
}

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load()
}

// Load reads the process environment. A .env file in the working directory is applied first.
func Load() (*Config, error) {
	cfg := &Config{
		DiscordToken:  os.Getenv("DISCORD_BOT_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		VerifierURL:   os.Getenv("VERIFIER_URL"),
		VerifierToken: os.Getenv("VERIFIER_TOKEN"),
		NarratorURL:   os.Getenv("NARRATOR_URL"),
		NarratorToken: os.Getenv("NARRATOR_TOKEN"),
		SweepSchedule: envOr("SWEEP_SCHEDULE", scheduler.DefaultSweepSchedule),
		StatsSchedule: envOr("STATS_SCHEDULE", scheduler.DefaultStatsSchedule),
		Environment:   envOr("ENV", "development"),
	}

	if cfg.DatabaseURL == "" {
		if legacy := os.Getenv("MYSQL_URL"); legacy != "" {
			cfg.DatabaseURL = legacyMySQLURL(legacy)
		}
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL not set in environment variables")
	}

	timeout, err := envInt("HTTP_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	retries, err := envInt("HTTP_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	cfg.HTTP = extService.HTTPOptions{
		Timeout: time.Duration(timeout) * time.Second,
		Retries: retries,
		Backoff: 500 * time.Millisecond,
	}
	return cfg, nil
}

// legacyMySQLURL turns the old bare "user:pass@tcp(host)/db" form into a URL dburl accepts.
func legacyMySQLURL(dsn string) string {
	if strings.Contains(dsn, "://") {
		return dsn
	}
	return "mysql://" + strings.Replace(strings.Replace(dsn, "@tcp(", "@", 1), ")/", "/", 1)
}

func envOr(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

// Dialector picks the gorm driver for a DATABASE_URL.
func Dialector(rawURL string) (gorm.Dialector, error) {
	u, err := dburl.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	switch u.Driver {
	case "mysql":
		dsn := u.DSN
		if !strings.Contains(dsn, "parseTime") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "charset=utf8mb4&parseTime=True&loc=UTC"
		}
		return mysql.Open(dsn), nil
	case "sqlite3", "sqlite":
		return sqlite.Open(u.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", u.Driver)
	}
}

// OpenDB connects and migrates the schema.
func OpenDB(cfg *Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}
	return nil
}

// OpenRedis returns nil when REDIS_URL is unset; sessions then stay in process memory.
func OpenRedis(cfg *Config) (redis.UniversalClient, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	log.Printf("Using redis at %s for interaction sessions", opts.Addr)
	return redis.NewClient(opts), nil
}

func (c *Config) Verifier() extService.Verifier {
	if c.VerifierURL == "" {
		log.Printf("VERIFIER_URL not set; proofs will be recorded as unverified")
		return extService.UnavailableVerifier{}
	}
	return extService.NewHTTPVerifier(c.VerifierURL, c.VerifierToken, c.HTTP)
}

func (c *Config) Narrator() extService.Narrator {
	if c.NarratorURL == "" {
		return extService.NoopNarrator{}
	}
	return extService.NewHTTPNarrator(c.NarratorURL, c.NarratorToken, c.HTTP)
}
