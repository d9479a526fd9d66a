package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_KEY", "BOT_TOKEN", "SERVER_HOST", "SERVER_PORT",
		"STORAGE_VIDEO_PATH", "STORAGE_AUDIO_PATH", "TRANSPORT_SIZE_THRESHOLD",
		"ENGINE_MAX_STRATEGIES", "WORKER_COUNT",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "test-key")
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9614 {
		t.Errorf("Port = %d, want 9614", cfg.Server.Port)
	}
	if cfg.Transport.SizeThreshold != 50*1024*1024 {
		t.Errorf("SizeThreshold = %d, want 50 MiB", cfg.Transport.SizeThreshold)
	}
	if cfg.Engine.AttemptsPerStrategy != 2 {
		t.Errorf("AttemptsPerStrategy = %d, want 2", cfg.Engine.AttemptsPerStrategy)
	}
	if cfg.Engine.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.Engine.RetryDelay)
	}
	if cfg.Transport.StandardBaseURL != "https://api.telegram.org" {
		t.Errorf("StandardBaseURL = %q", cfg.Transport.StandardBaseURL)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestLoad_MissingBotToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "test-key")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for missing bot token")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "test-key")
	t.Setenv("BOT_TOKEN", "123:abc")

	yaml := `
server:
  port: 8080
engine:
  max_strategies: 4
identity:
  proxies:
    - url: "socks5://10.0.0.1:1080"
      bundle: "eu.txt"
    - url: "socks5://10.0.0.2:1080"
      bundle: "us.txt"
transport:
  size_threshold: 1048576
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Engine.MaxStrategies != 4 {
		t.Errorf("MaxStrategies = %d, want 4", cfg.Engine.MaxStrategies)
	}
	if len(cfg.Identity.Proxies) != 2 {
		t.Fatalf("Proxies = %d entries, want 2", len(cfg.Identity.Proxies))
	}
	if cfg.Identity.Proxies[1].Bundle != "us.txt" {
		t.Errorf("second proxy bundle = %q, want us.txt", cfg.Identity.Proxies[1].Bundle)
	}
	if cfg.Transport.SizeThreshold != 1048576 {
		t.Errorf("SizeThreshold = %d, want 1048576", cfg.Transport.SizeThreshold)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "test-key")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("SERVER_PORT", "7000")

	yaml := `
server:
  port: 8080
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want 7000 from environment", cfg.Server.Port)
	}
	// Fields set by neither file nor environment keep the built-in defaults.
	if cfg.Engine.MaxStrategies != 6 {
		t.Errorf("MaxStrategies = %d, want 6", cfg.Engine.MaxStrategies)
	}
}

func TestLoad_ProxyWithoutURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "test-key")
	t.Setenv("BOT_TOKEN", "123:abc")

	yaml := `
identity:
  proxies:
    - bundle: "orphan.txt"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for proxy entry without url")
	}
}

func TestStorageConfig_DestDir(t *testing.T) {
	cfg := StorageConfig{VideoPath: "/v", AudioPath: "/a"}

	if got := cfg.DestDir("audio"); got != "/a" {
		t.Errorf("DestDir(audio) = %q", got)
	}
	if got := cfg.DestDir("video"); got != "/v" {
		t.Errorf("DestDir(video) = %q", got)
	}
}
