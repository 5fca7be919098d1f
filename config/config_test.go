package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Swarm.ParticleEscape {
		t.Error("particle_escape should default to false")
	}
	if cfg.Swarm.EscapeBacklog != 1000 {
		t.Errorf("escape_backlog = %d, want 1000", cfg.Swarm.EscapeBacklog)
	}
	if cfg.Checkpoint.ChunkRows != 10000 {
		t.Errorf("chunk_rows = %d, want 10000", cfg.Checkpoint.ChunkRows)
	}
	if cfg.Telemetry.OutputDir != "" {
		t.Errorf("output_dir = %q, want empty", cfg.Telemetry.OutputDir)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	body := "swarm:\n  particle_escape: true\n  escape_backlog: 50\ntelemetry:\n  output_dir: /tmp/out\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Swarm.ParticleEscape {
		t.Error("particle_escape override not applied")
	}
	if cfg.Swarm.EscapeBacklog != 50 {
		t.Errorf("escape_backlog = %d, want 50", cfg.Swarm.EscapeBacklog)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Checkpoint.ChunkRows != 10000 {
		t.Errorf("chunk_rows = %d, want default 10000", cfg.Checkpoint.ChunkRows)
	}
	if cfg.Telemetry.OutputDir != "/tmp/out" {
		t.Errorf("output_dir = %q, want /tmp/out", cfg.Telemetry.OutputDir)
	}
}

func TestInvalidValuesRejected(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero backlog", "swarm:\n  escape_backlog: 0\n"},
		{"negative backlog", "swarm:\n  escape_backlog: -5\n"},
		{"zero chunk rows", "checkpoint:\n  chunk_rows: 0\n"},
		{"malformed yaml", "swarm: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Swarm.EscapeBacklog = 123

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Swarm.EscapeBacklog != 123 {
		t.Errorf("escape_backlog = %d, want 123", back.Swarm.EscapeBacklog)
	}
}
