package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "DATABASE_DRIVER", "KAFKA_BROKERS", "CORS_ALLOWED_ORIGINS", "DELETE_ANIMATION_MS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q", c.HTTPPort)
	}
	if c.DatabaseDriver != "postgres" {
		t.Errorf("DatabaseDriver = %q", c.DatabaseDriver)
	}
	if c.KafkaBrokers != nil {
		t.Errorf("KafkaBrokers = %v, want nil", c.KafkaBrokers)
	}
	if len(c.CORSAllowedOrigins) != 1 || c.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v", c.CORSAllowedOrigins)
	}
	if c.DeleteAnimation != 500*time.Millisecond {
		t.Errorf("DeleteAnimation = %v", c.DeleteAnimation)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	t.Setenv("DB_POOL_SIZE", "7")
	t.Setenv("ADD_ANIMATION_MS", "notanumber")
	c := Load()
	if len(c.KafkaBrokers) != 2 || c.KafkaBrokers[0] != "a:9092" || c.KafkaBrokers[1] != "b:9092" {
		t.Errorf("KafkaBrokers = %v", c.KafkaBrokers)
	}
	if c.DBPoolSize != 7 {
		t.Errorf("DBPoolSize = %d", c.DBPoolSize)
	}
	if c.AddAnimation != 500*time.Millisecond {
		t.Errorf("AddAnimation = %v", c.AddAnimation)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "# comment\nTASKS_TEST_A=one\nTASKS_TEST_B=\"two words\"\nTASKS_TEST_C='three'\nbroken line\nTASKS_TEST_SET=fromfile\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"TASKS_TEST_A", "TASKS_TEST_B", "TASKS_TEST_C"} {
		t.Setenv(k, "")
	}
	t.Setenv("TASKS_TEST_SET", "fromenv")

	LoadEnvFile(path)

	want := map[string]string{
		"TASKS_TEST_A":   "one",
		"TASKS_TEST_B":   "two words",
		"TASKS_TEST_C":   "three",
		"TASKS_TEST_SET": "fromenv",
	}
	for k, v := range want {
		if got := os.Getenv(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}

	LoadEnvFile(filepath.Join(t.TempDir(), "missing"))
}

func TestReplicaID(t *testing.T) {
	t.Setenv("REPLICA_ID", "")
	if c := Load(); c.ReplicaID != "" {
		t.Errorf("ReplicaID = %q, want empty", c.ReplicaID)
	}
	t.Setenv("REPLICA_ID", "web-0")
	if c := Load(); c.ReplicaID != "web-0" {
		t.Errorf("ReplicaID = %q", c.ReplicaID)
	}
}
