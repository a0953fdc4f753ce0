package runcfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if !c.Display.ColorOutput || c.Display.NumberFormat != "hex" || c.Display.MaxRows != 200 {
		t.Fatalf("Default() = %+v, unexpected values", c.Display)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	c, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Display.NumberFormat != "hex" || c.Display.MaxRows != 200 {
		t.Fatalf("LoadFrom(missing) = %+v, want defaults", c.Display)
	}
}

func TestSaveToThenLoadFromRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "runcfg.toml")
	c := Default()
	c.Display.ColorOutput = false
	c.Display.NumberFormat = "dec"
	c.Display.MaxRows = 50

	if err := c.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.Display.ColorOutput != false || got.Display.NumberFormat != "dec" || got.Display.MaxRows != 50 {
		t.Fatalf("round-tripped config = %+v, want {false dec 50}", got.Display)
	}
}

func TestLoadFromRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("this is not valid = = toml"), 0o600); err != nil {
		t.Fatalf("writing test fixture: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatalf("expected an error parsing malformed TOML")
	}
}
