package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Mesh.MaxPeers != 20 || cfg.Mesh.MaxHops != 5 {
		t.Fatalf("unexpected mesh defaults: %+v", cfg.Mesh)
	}
	if cfg.Mesh.HeartbeatMS != 30000 || cfg.Mesh.PeerTimeoutMS != 120000 {
		t.Fatalf("unexpected timing defaults: %+v", cfg.Mesh)
	}
	if cfg.Transport.Kind != "udp" {
		t.Fatalf("default transport = %q, want udp", cfg.Transport.Kind)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	yaml := `
app_name: bench-node
node_addr: "02:11:22:33:44:55"
mesh:
  gateway: true
  max_hops: 3
transport:
  kind: mem
telemetry:
  enable: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppName != "bench-node" || cfg.NodeAddr != "02:11:22:33:44:55" {
		t.Fatalf("identity not loaded: %+v", cfg)
	}
	if !cfg.Mesh.Gateway || cfg.Mesh.MaxHops != 3 {
		t.Fatalf("mesh overrides not applied: %+v", cfg.Mesh)
	}
	if cfg.Transport.Kind != "mem" || cfg.Telemetry.Enable {
		t.Fatalf("section overrides not applied: %+v", cfg)
	}
	// untouched keys keep their defaults
	if cfg.Mesh.MaxPeers != 20 {
		t.Fatalf("max_peers = %d, want default 20", cfg.Mesh.MaxPeers)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MESHNET_LOG_LEVEL", "debug")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q, want env override debug", cfg.Log.Level)
	}
}

func TestValidationRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad address", "node_addr: \"not-an-addr\"\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"bad transport", "transport:\n  kind: pigeon\n"},
		{"zero peers", "mesh:\n  max_peers: 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("invalid config accepted")
			}
		})
	}
}
