package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds application configuration from environment.
type Config struct {
	HTTPPort           string
	DatabaseDriver     string
	DatabaseURL        string
	DBPoolSize         int
	RedisURL           string
	RedisPoolSize      int
	CacheTTL           int // seconds
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaPartitions    int
	KafkaGroupID       string
	ReplicaID          string // names this process's consumer group; random when empty
	CORSAllowedOrigins []string
	APIURL             string
	DeleteAnimation    time.Duration
	AddAnimation       time.Duration
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Get returns the application config (loads once from env).
func Get() *Config {
	cfgOnce.Do(func() {
		cfg = Load()
	})
	return cfg
}

// Load reads the config from the current environment without caching it.
func Load() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseDriver:     getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBPoolSize:         getIntEnv("DB_POOL_SIZE", 20),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPoolSize:      getIntEnv("REDIS_POOL_SIZE", 50),
		CacheTTL:           getIntEnv("CACHE_TTL_SEC", 300),
		KafkaBrokers:       getSliceEnv("KAFKA_BROKERS", ""),
		KafkaTopic:         getEnv("KAFKA_REVALIDATE_TOPIC", "task-revalidations"),
		KafkaPartitions:    getIntEnv("KAFKA_PARTITIONS", 1),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "tasklist-revalidators"),
		ReplicaID:          os.Getenv("REPLICA_ID"),
		CORSAllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", "*"),
		APIURL:             getEnv("TASKS_API_URL", "http://localhost:8080"),
		DeleteAnimation:    time.Duration(getIntEnv("DELETE_ANIMATION_MS", 500)) * time.Millisecond,
		AddAnimation:       time.Duration(getIntEnv("ADD_ANIMATION_MS", 500)) * time.Millisecond,
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// getSliceEnv splits a comma separated value. An empty default yields a nil slice.
func getSliceEnv(key, defaultVal string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LoadEnvFile reads KEY=VALUE lines from path into the environment. Variables
// that are already set win. A missing file is not an error.
func LoadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" {
			continue
		}
		if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
			val = val[1 : len(val)-1]
		}
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}
