package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dalmaki/when2meet/internal/interval"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want empty", cfg.ConfigFile)
	}
	if want := filepath.Join(dir, "w2m.db"); cfg.Database != want {
		t.Errorf("Database = %q, want %q", cfg.Database, want)
	}
	axis, err := cfg.Axis()
	if err != nil {
		t.Fatalf("Axis() error = %v", err)
	}
	if axis != interval.DefaultAxis() {
		t.Errorf("Axis() = %+v, want %+v", axis, interval.DefaultAxis())
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	content := "database: /tmp/sheets.json\naxis_start: \"09:00\"\naxis_end: \"18:30\"\nemit: true\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database != "/tmp/sheets.json" {
		t.Errorf("Database = %q", cfg.Database)
	}
	if !cfg.Emit {
		t.Error("Emit = false, want true")
	}
	axis, err := cfg.Axis()
	if err != nil {
		t.Fatalf("Axis() error = %v", err)
	}
	if axis.Start != 9*3600 || axis.End != 18*3600+1800 {
		t.Errorf("Axis() = %+v", axis)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("axis_start: \"09:00\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("W2M_AXIS_START", "08:00")
	t.Setenv("W2M_DEBUG", "true")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AxisStart != "08:00" {
		t.Errorf("AxisStart = %q, want 08:00", cfg.AxisStart)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
}

func TestAxisInvalid(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
	}{
		{"reversed", "18:00", "09:00"},
		{"empty window", "09:00", "09:00"},
		{"garbage", "soon", "18:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{AxisStart: tt.start, AxisEnd: tt.end}
			if _, err := cfg.Axis(); err == nil {
				t.Error("Axis() should fail")
			}
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load() of malformed yaml should fail")
	}
}
