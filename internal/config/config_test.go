package config

import (
	"strings"
	"testing"
)

func TestLoadRequiresCoreVars(t *testing.T) {
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required vars")
	}
	if !strings.Contains(err.Error(), "MYSQL_DSN") || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("error should name the missing vars, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/infograph?parseTime=true")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.GeminiBaseURL != "https://generativelanguage.googleapis.com" {
		t.Errorf("GeminiBaseURL = %q", cfg.GeminiBaseURL)
	}
	if cfg.GeminiModel != "gemini-3-pro-image-preview" {
		t.Errorf("GeminiModel = %q", cfg.GeminiModel)
	}
	// A missing Gemini key must not fail startup; it surfaces at generate time.
	if cfg.GeminiAPIKey != "" {
		t.Errorf("GeminiAPIKey = %q", cfg.GeminiAPIKey)
	}
	if cfg.ShareEnabled() {
		t.Error("share should be disabled without S3 settings")
	}
}

func TestShareEnabled(t *testing.T) {
	t.Setenv("MYSQL_DSN", "dsn")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")
	t.Setenv("S3_BUCKET", "bucket")
	t.Setenv("S3_PUBLIC_BASE_URL", "https://cdn.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.ShareEnabled() {
		t.Error("share should be enabled with full S3 settings")
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "https://fallback"},
		{"https://example.com/", "https://example.com"},
		{"example.com", "https://example.com"},
		{"example.com/v1beta", "https://example.com/v1beta"},
		{"example.com/v1/", "https://example.com/v1"},
	}
	for _, tc := range cases {
		if got := normalizeBaseURL(tc.in, "https://fallback"); got != tc.want {
			t.Errorf("normalizeBaseURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
