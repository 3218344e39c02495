package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, "pipeline.yaml", "passes: [mem2reg, gvn]\nemit_debug_info: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Passes) != 2 || cfg.Passes[0] != "mem2reg" || cfg.Passes[1] != "gvn" {
		t.Fatalf("unexpected passes: %v", cfg.Passes)
	}
	if !cfg.EmitDebugInfo {
		t.Fatalf("expected emit_debug_info true")
	}
	if cfg.MaxInlineDepth != DefaultMaxInlineDepth {
		t.Fatalf("expected default max inline depth %d, got %d", DefaultMaxInlineDepth, cfg.MaxInlineDepth)
	}
	if cfg.MaxInlinesPerFunction != DefaultMaxInlinesPerFunction {
		t.Fatalf("expected default max inlines per function %d, got %d", DefaultMaxInlinesPerFunction, cfg.MaxInlinesPerFunction)
	}
}

func TestLoadHonorsExplicitLimits(t *testing.T) {
	path := writeTemp(t, "pipeline.yaml", "passes: []\nmax_inline_depth: 2\nmax_inlines_per_function: 4\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxInlineDepth != 2 || cfg.MaxInlinesPerFunction != 4 {
		t.Fatalf("explicit limits not honored: %+v", cfg)
	}
}

func TestLoadAsmcmpConfigParsesKinds(t *testing.T) {
	path := writeTemp(t, "asmcmp.yaml", `passes:
  - name: Amd64Peephole
    kind: virtual
  - name: Amd64DropVirtual
    kind: devirtual
  - name: Amd64EliminateLabel
    kind: both
`)
	cfg, err := LoadAsmcmpConfig(path)
	if err != nil {
		t.Fatalf("LoadAsmcmpConfig: %v", err)
	}
	if len(cfg.Passes) != 3 {
		t.Fatalf("expected 3 passes, got %d", len(cfg.Passes))
	}
	if cfg.Passes[0].Kind != Virtual || cfg.Passes[1].Kind != Devirtual || cfg.Passes[2].Kind != Both {
		t.Fatalf("kinds not decoded as expected: %+v", cfg.Passes)
	}
}

func TestLoadAsmcmpConfigRejectsUnknownKind(t *testing.T) {
	path := writeTemp(t, "asmcmp.yaml", "passes:\n  - name: Bogus\n    kind: sideways\n")
	if _, err := LoadAsmcmpConfig(path); err == nil {
		t.Fatalf("expected an error for an unknown asmcmp pass kind")
	}
}
