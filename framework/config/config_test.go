package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-europa/framework/config"
	"github.com/km-arc/go-europa/framework/container"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func setEnv(t *testing.T, key, val string) {
	t.Helper()
	t.Setenv(key, val) // automatically restored after test
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	// No env set → verify all defaults
	cfg := config.Load("testdata/empty.env")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"App.Name", cfg.App.Name, "Europa"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"Container.Name", cfg.Container.Name, container.DefaultName},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
	if len(cfg.Container.Transient) != 0 {
		t.Errorf("Container.Transient: got %v, want none", cfg.Container.Transient)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	setEnv(t, "APP_NAME", "MyApp")
	setEnv(t, "APP_ENV", "production")
	setEnv(t, "APP_PORT", "9000")
	setEnv(t, "CONTAINER_NAME", "secondary")
	setEnv(t, "LOG_LEVEL", "debug")

	cfg := config.Load("testdata/empty.env")

	if cfg.App.Name != "MyApp" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "MyApp")
	}
	if cfg.App.Env != "production" {
		t.Errorf("App.Env: got %q want %q", cfg.App.Env, "production")
	}
	if cfg.App.Port != "9000" {
		t.Errorf("App.Port: got %q want %q", cfg.App.Port, "9000")
	}
	if cfg.Container.Name != "secondary" {
		t.Errorf("Container.Name: got %q want %q", cfg.Container.Name, "secondary")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q want %q", cfg.Log.Level, "debug")
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	os.Unsetenv("APP_NAME")
	path := filepath.Join(t.TempDir(), "app.env")
	if err := os.WriteFile(path, []byte("APP_NAME=FromFile\nCONTAINER_TRANSIENT=request, response\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("CONTAINER_TRANSIENT")
	})

	cfg := config.Load(path)
	if cfg.App.Name != "FromFile" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "FromFile")
	}
	if len(cfg.Container.Transient) != 2 || cfg.Container.Transient[1] != "response" {
		t.Errorf("Container.Transient: got %v", cfg.Container.Transient)
	}
}

func TestLoad_AppDebugTrue(t *testing.T) {
	setEnv(t, "APP_DEBUG", "true")
	cfg := config.Load("testdata/empty.env")
	if !cfg.App.Debug {
		t.Error("expected App.Debug to be true")
	}
}

func TestLoad_AppDebugFalse(t *testing.T) {
	setEnv(t, "APP_DEBUG", "false")
	cfg := config.Load("testdata/empty.env")
	if cfg.App.Debug {
		t.Error("expected App.Debug to be false")
	}
}

// ── Configure / Logger ───────────────────────────────────────────────────────

func TestConfig_Configure(t *testing.T) {
	cfg := &config.Config{Container: config.ContainerConfig{Transient: []string{"request"}}}
	c := container.New().Configure(cfg)

	if got := c.Make("config"); got != cfg {
		t.Errorf("config: got %v want %v", got, cfg)
	}

	n := 0
	c.Set("request", func() any { n++; return n })
	c.Make("request")
	c.Make("request")
	if n != 2 {
		t.Errorf("request should be transient; producer ran %d times", n)
	}
}

func TestConfig_Logger(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{Level: "warning", Format: "json"}}
	log := cfg.Logger()
	if log.GetLevel() != logrus.WarnLevel {
		t.Errorf("level: got %v want %v", log.GetLevel(), logrus.WarnLevel)
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter: got %T", log.Formatter)
	}

	cfg.Log.Level = "loud"
	if got := cfg.Logger().GetLevel(); got != logrus.InfoLevel {
		t.Errorf("fallback level: got %v", got)
	}
}

// ── Get / GetInt / GetBool / GetList ─────────────────────────────────────────

func TestGet_ReturnsValue(t *testing.T) {
	setEnv(t, "CUSTOM_KEY", "hello")
	if got := config.Get("CUSTOM_KEY", "default"); got != "hello" {
		t.Errorf("got %q want %q", got, "hello")
	}
}

func TestGet_ReturnsFallback(t *testing.T) {
	os.Unsetenv("MISSING_KEY")
	if got := config.Get("MISSING_KEY", "fallback"); got != "fallback" {
		t.Errorf("got %q want %q", got, "fallback")
	}
}

func TestGetInt_ReturnsInt(t *testing.T) {
	setEnv(t, "SOME_INT", "42")
	if got := config.GetInt("SOME_INT", 0); got != 42 {
		t.Errorf("got %d want %d", got, 42)
	}
}

func TestGetInt_ReturnsFallbackOnInvalid(t *testing.T) {
	setEnv(t, "SOME_INT", "notanint")
	if got := config.GetInt("SOME_INT", 99); got != 99 {
		t.Errorf("got %d want %d", got, 99)
	}
}

func TestGetBool_True(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		setEnv(t, "BOOL_KEY", val)
		if !config.GetBool("BOOL_KEY", false) {
			t.Errorf("expected true for %q", val)
		}
	}
}

func TestGetBool_ReturnsFallbackOnInvalid(t *testing.T) {
	setEnv(t, "BOOL_KEY", "notabool")
	if config.GetBool("BOOL_KEY", true) != true {
		t.Error("expected fallback true")
	}
}

func TestGetList(t *testing.T) {
	setEnv(t, "LIST_KEY", " a, ,b ,c")
	got := config.GetList("LIST_KEY")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("got %v", got)
	}
}
