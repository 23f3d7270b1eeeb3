package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigLoadAndValidate(t *testing.T) {
	tempDir := t.TempDir()
	tempConfigPath := filepath.Join(tempDir, "structa.yml")

	configYAML := `analyzer:
  bad_threshold: "5/100"
  field_threshold: 10
output:
  format: json
`
	if err := os.WriteFile(tempConfigPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(tempConfigPath, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analyzer.BadThreshold != "5/100" {
		t.Errorf("expected bad_threshold=5/100, got %q", cfg.Analyzer.BadThreshold)
	}
	if cfg.Analyzer.FieldThreshold != 10 {
		t.Errorf("expected field_threshold=10, got %d", cfg.Analyzer.FieldThreshold)
	}
	// Unspecified fields keep their defaults.
	if cfg.Analyzer.EmptyThreshold != "98/100" {
		t.Errorf("expected default empty_threshold, got %q", cfg.Analyzer.EmptyThreshold)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("expected output format json, got %q", cfg.Output.Format)
	}
}

func TestConfigInvalidValue(t *testing.T) {
	tempDir := t.TempDir()
	tempConfigPath := filepath.Join(tempDir, "structa.yml")
	configYAML := "output:\n  format: xml\n"
	if err := os.WriteFile(tempConfigPath, []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tempConfigPath, ""); err == nil {
		t.Fatal("an invalid output format should fail CUE validation")
	}
}

func TestConfigEnvExpansion(t *testing.T) {
	tempDir := t.TempDir()
	tempConfigPath := filepath.Join(tempDir, "structa.yml")
	configYAML := "output:\n  file: \"${STRUCTA_TEST_OUT:=~/schema.json}\"\n"
	if err := os.WriteFile(tempConfigPath, []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	_ = os.Unsetenv("STRUCTA_TEST_OUT")
	cfg, err := Load(tempConfigPath, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "schema.json"); cfg.Output.File != want {
		t.Errorf("expected file=%q, got %q", want, cfg.Output.File)
	}

	os.Setenv("STRUCTA_TEST_OUT", "/tmp/override.json")
	defer os.Unsetenv("STRUCTA_TEST_OUT")
	cfg, err = Load(tempConfigPath, "")
	if err != nil {
		t.Fatalf("Load with env override failed: %v", err)
	}
	if cfg.Output.File != "/tmp/override.json" {
		t.Errorf("expected env override, got %q", cfg.Output.File)
	}
}

func TestAnalyzerOptions(t *testing.T) {
	cfg := GetDefaultConfig()
	now := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	opts, err := cfg.AnalyzerOptions(now)
	if err != nil {
		t.Fatal(err)
	}
	if opts.BadThreshold.Cmp(big.NewRat(2, 100)) != 0 {
		t.Errorf("bad threshold wrong: %v", opts.BadThreshold)
	}
	if opts.MinTimestamp.Year() != 2001 {
		t.Errorf("min timestamp should be 20 years back, got %v", opts.MinTimestamp)
	}
	if opts.MaxTimestamp.Year() != 2031 {
		t.Errorf("max timestamp should be 10 years on, got %v", opts.MaxTimestamp)
	}

	cfg.Analyzer.MinTimestamp = "2010-01-01"
	opts, err = cfg.AnalyzerOptions(now)
	if err != nil {
		t.Fatal(err)
	}
	if opts.MinTimestamp.Year() != 2010 {
		t.Errorf("absolute timestamps should be honored, got %v", opts.MinTimestamp)
	}

	cfg.Analyzer.BadThreshold = "not a number"
	if _, err := cfg.AnalyzerOptions(now); err == nil {
		t.Fatal("invalid threshold should fail")
	}
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "structa.yml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("default config should load cleanly: %v", err)
	}
	if cfg.Analyzer.FieldThreshold != 20 {
		t.Errorf("round-tripped default wrong: %d", cfg.Analyzer.FieldThreshold)
	}
}
