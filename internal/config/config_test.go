package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ============================================================
// Config loading
// ============================================================

func TestDefaults(t *testing.T) {
	c := Default()
	if c.GraceMS != 2500 {
		t.Fatalf("grace_ms = %d, want 2500", c.GraceMS)
	}
	if c.Grace() != 2500*time.Millisecond {
		t.Fatalf("grace = %v", c.Grace())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if c.GraceMS != 2500 {
		t.Fatalf("unexpected config: %+v", c)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
db_path = "/tmp/custom.db"
grace_ms = 5000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.DBPath != "/tmp/custom.db" || c.GraceMS != 5000 {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.Grace() != 5*time.Second {
		t.Fatalf("grace = %v", c.Grace())
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`db_path = "/tmp/x.db"`), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.DBPath != "/tmp/x.db" || c.GraceMS != 2500 {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	// Options that moved into the settings table may linger in old config
	// files; they must not break loading.
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "grace_ms = 1000\nhorizon_days = 7\nweek_start = \"sunday\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("unknown keys should be tolerated: %v", err)
	}
	if c.GraceMS != 1000 {
		t.Fatalf("grace_ms = %d", c.GraceMS)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`grace_ms = [what`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadClampsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`grace_ms = -5`), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.GraceMS != 2500 {
		t.Fatalf("bad value not clamped: %+v", c)
	}
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if p == "" {
		t.Fatal("empty path")
	}
}
