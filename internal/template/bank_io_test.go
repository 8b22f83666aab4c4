package template

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBankRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bank.json")

	body := `{
		"l": 2,
		"c": 2,
		"sparsity_threshold": 1.0,
		"templates": [
			{"waveform": [1, 0, 1, 0], "mask": [0]},
			{"waveform": [0, -1, 0, 1]}
		]
	}`

	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	bank, err := LoadBank(path)
	if err != nil {
		t.Fatalf("LoadBank: %v", err)
	}

	if bank.N() != 2 {
		t.Fatalf("N() = %d, want 2", bank.N())
	}

	if len(bank.Templates[0].Mask) != 1 || bank.Templates[0].Mask[0] != 0 {
		t.Errorf("template 0 mask = %v, want [0]", bank.Templates[0].Mask)
	}

	if len(bank.Templates[1].Mask) != 1 || bank.Templates[1].Mask[0] != 1 {
		t.Errorf("template 1 mask (inferred) = %v, want [1]", bank.Templates[1].Mask)
	}
}

func TestLoadBankMissingFile(t *testing.T) {
	_, err := LoadBank(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("want error for missing bank file")
	}
}
