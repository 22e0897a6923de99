package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DSN           string
	MigrationsDir string
	HTTPPort      string
	Username      string
	Password      string
	FilterWord    string
	// Location is the time zone of "now" for cutoff windows.
	Location     *time.Location
	CacheRefresh time.Duration

	AuditBatchSize int
	AuditTimeout   time.Duration
	AuditWorkers   int

	KafkaBrokers     []string
	KafkaGroupID     string
	KafkaTopic       string
	KafkaConsume     bool
	OutboxPoll       time.Duration
	OutboxBatchLimit int
}

func LoadConfig() *Config {
	// .env is optional, real environment variables win
	_ = godotenv.Load()

	brokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	return &Config{
		DSN:              getEnv("APP_DSN", "host=localhost user=postgres password=postgres dbname=pickings sslmode=disable"),
		MigrationsDir:    getEnv("APP_MIGRATIONS", "migrations"),
		HTTPPort:         getEnv("APP_PORT", "9000"),
		Username:         getEnv("APP_USER", "admin"),
		Password:         getEnv("APP_PASS", "secret"),
		FilterWord:       getEnv("APP_FILTER", ""),
		Location:         getLocation("APP_TZ", time.UTC),
		CacheRefresh:     getDuration("CACHE_REFRESH", time.Minute),
		AuditBatchSize:   getInt("AUDIT_BATCH_SIZE", 10),
		AuditTimeout:     getDuration("AUDIT_TIMEOUT", 2*time.Second),
		AuditWorkers:     getInt("AUDIT_WORKERS", 2),
		KafkaBrokers:     strings.Split(brokersStr, ","),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "cutoff-events"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "picking-cutoff"),
		KafkaConsume:     getBool("KAFKA_CONSUME", false),
		OutboxPoll:       getDuration("OUTBOX_POLL", time.Second),
		OutboxBatchLimit: getInt("OUTBOX_LIMIT", 50),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, raw, defaultVal)
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid %s=%q, using %s", key, raw, defaultVal)
		return defaultVal
	}
	return v
}

func getBool(key string, defaultVal bool) bool {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getLocation(key string, defaultVal *time.Location) *time.Location {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal
	}
	loc, err := time.LoadLocation(raw)
	if err != nil || loc == time.Local {
		log.Printf("Invalid %s=%q, using %s", key, raw, defaultVal)
		return defaultVal
	}
	return loc
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.HTTPPort)
}
