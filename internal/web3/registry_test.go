package web3

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadChainDefinitions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	payload := `chains:
  polygon:
    caip2: eip155:137
    rpc_url: https://polygon-rpc.example
    chain_id: 137
    description: Polygon PoS
`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	defs, err := LoadChainDefinitions(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def, ok := defs.Chains["polygon"]
	if !ok {
		t.Fatalf("expected polygon chain definition")
	}
	if def.CAIP2 != "eip155:137" || def.ChainID != 137 {
		t.Fatalf("unexpected definition: %+v", def)
	}
}

func TestLoadChainDefinitionsEmptyPath(t *testing.T) {
	defs, err := LoadChainDefinitions("")
	if err != nil {
		t.Fatalf("empty path must not error: %v", err)
	}
	if defs.Chains == nil {
		t.Fatalf("expected empty map, got nil")
	}
}

func TestRegistryKnownMatchesNameAndCAIP2(t *testing.T) {
	registry := NewRegistry(ChainDefinitions{Chains: map[string]ChainDefinition{
		"Polygon": {CAIP2: "eip155:137"},
	}})
	defer registry.Close()

	if !registry.Known("polygon") {
		t.Fatalf("name lookup must be case-insensitive")
	}
	if !registry.Known("EIP155:137") {
		t.Fatalf("CAIP-2 lookup must be case-insensitive")
	}
	if registry.Known("eip155:1") {
		t.Fatalf("unknown chain must not match")
	}
}

func TestRegistryProbeWithoutEndpoint(t *testing.T) {
	registry := NewRegistry(ChainDefinitions{Chains: map[string]ChainDefinition{
		"polygon": {CAIP2: "eip155:137"},
	}})
	defer registry.Close()

	// 声明但未配置端点的链视为可用。
	if err := registry.Probe(context.Background(), "polygon"); err != nil {
		t.Fatalf("probe without endpoint must succeed: %v", err)
	}
	if err := registry.Probe(context.Background(), "eip155:1"); err == nil {
		t.Fatalf("probing an unknown chain must fail")
	}
}
