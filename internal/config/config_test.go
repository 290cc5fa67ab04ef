package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Model != "gpt-4o-mini" || c.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("model/base_url defaults: %q %q", c.Model, c.BaseURL)
	}
	if c.RetryMaxAttempts != 1 || c.HTTPTimeoutSec != 60 {
		t.Fatalf("retry/timeout defaults: %d %d", c.RetryMaxAttempts, c.HTTPTimeoutSec)
	}
	if c.MaxRowsForAnalysis != 500 || c.SampleSeed != 42 || c.DataTemperature != 0.5 || c.PreviewRows != 100 {
		t.Fatalf("analysis defaults: %+v", c)
	}
	if c.ListenAddr != ":8501" || c.MaxUploadMB != 200 || c.LogFormat != "text" || c.SessionSecureCookie {
		t.Fatalf("web defaults: %+v", c)
	}
	if opt := c.ParseOptions(); opt.Delimiter != ',' || opt.DecimalSeparator != '.' || opt.ThousandsSeparator != 0 {
		t.Fatalf("parse options: %+v", opt)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("model: gpt-4o\nmax_rows_for_analysis: 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AINSIGHT_MODEL", "gpt-4.1-mini")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Model != "gpt-4.1-mini" {
		t.Fatalf("env should win, got %q", c.Model)
	}
	if c.MaxRowsForAnalysis != 50 {
		t.Fatalf("file value lost: %d", c.MaxRowsForAnalysis)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("delimiter: ';;'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "delimiter") {
		t.Fatalf("expected delimiter error, got %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing --config file")
	}
}

func TestSetAndSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Defaults()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if err := c.Set("delimiter", `\t`); err != nil {
		t.Fatalf("set delimiter: %v", err)
	}
	if err := c.Set("retry_max_attempts", "3"); err != nil {
		t.Fatalf("set retry: %v", err)
	}
	if err := c.Set("session_secure_cookie", "true"); err != nil {
		t.Fatalf("set secure cookie: %v", err)
	}
	if err := c.Set("base_url", "http://localhost:8080/v1/"); err != nil {
		t.Fatalf("set base_url: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(c, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Delimiter != "\t" || got.RetryMaxAttempts != 3 || got.BaseURL != "http://localhost:8080/v1" || !got.SessionSecureCookie {
		t.Fatalf("round trip lost values: %+v", got)
	}
}

func TestSetErrors(t *testing.T) {
	c, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct{ key, val string }{
		{"nope", "1"},
		{"max_rows_for_analysis", "abc"},
		{"max_rows_for_analysis", "0"},
		{"data_temperature", "3"},
		{"log_format", "xml"},
		{"thousands_separator", "ab"},
		{"session_secure_cookie", "maybe"},
	}
	for _, tc := range cases {
		cp := *c
		if err := cp.Set(tc.key, tc.val); err == nil {
			t.Errorf("Set(%q, %q): expected error", tc.key, tc.val)
		}
	}
}

func TestSaveDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	c.Model = "gpt-4o"
	if err := Save(c, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Model != "gpt-4o" {
		t.Fatalf("model=%q", got.Model)
	}
}
