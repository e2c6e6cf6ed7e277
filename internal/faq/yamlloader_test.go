package faq

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
tenant_id: cabinet

entries:
  - id: horaires
    question: "Quels sont vos horaires ?"
    patterns:
      - "vous etes ouverts quand"
    answer: "De 9h à 17h."
  - id: adresse
    question: "Où êtes-vous ?"
    answer: "12 rue de la République."
`

func TestLoadFromReader_Valid(t *testing.T) {
	ff, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if ff.TenantID != "cabinet" {
		t.Errorf("tenant = %q", ff.TenantID)
	}
	if len(ff.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(ff.Entries))
	}
	if ff.Entries[0].ID != "horaires" || len(ff.Entries[0].Patterns) != 1 {
		t.Errorf("first entry = %+v", ff.Entries[0])
	}
}

func TestLoadFromReader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"unknown field",
			"tenant_id: x\nbogus: y\n",
			"decode",
		},
		{
			"missing tenant",
			"entries:\n  - id: a\n    question: q\n    answer: r\n",
			"tenant_id is required",
		},
		{
			"missing answer",
			"tenant_id: x\nentries:\n  - id: a\n    question: q\n",
			"answer is required",
		},
		{
			"duplicate id",
			"tenant_id: x\nentries:\n  - id: a\n    question: q\n    answer: r\n  - id: a\n    question: q2\n    answer: r2\n",
			"duplicate id",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cabinet.yaml"), []byte(validYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-YAML files are skipped.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o644); err != nil {
		t.Fatal(err)
	}

	byTenant, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(byTenant["cabinet"]) != 2 {
		t.Errorf("cabinet entries = %d, want 2", len(byTenant["cabinet"]))
	}
}

func TestLoadDir_PropagatesValidation(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("entries: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Error("invalid file must fail the whole load")
	}
}
