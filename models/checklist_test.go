package models

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultChecklist(t *testing.T) {
	list := DefaultChecklist()
	if len(list) != 15 {
		t.Fatalf("expected 15 checklist slots, got %d", len(list))
	}

	seen := map[string]bool{}
	for _, item := range list {
		if item.Key == "" || item.Label == "" {
			t.Errorf("slot %+v missing key or label", item)
		}
		if seen[item.Key] {
			t.Errorf("duplicate slot key %s", item.Key)
		}
		seen[item.Key] = true
	}

	if !list.Has("frontal") || !list.Has("llanta_p4") {
		t.Error("expected default slots frontal and llanta_p4")
	}
	if list.Has("techo_exterior") {
		t.Error("unexpected slot techo_exterior")
	}
}

func TestLoadChecklistDefaultsWithoutPath(t *testing.T) {
	list, err := LoadChecklist("")
	if err != nil {
		t.Fatalf("LoadChecklist: unexpected error: %v", err)
	}
	if len(list) != len(DefaultChecklist()) {
		t.Errorf("expected default checklist, got %d slots", len(list))
	}
}

func TestLoadChecklistFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checklist.json")
	content := `[{"key":"frontal","label":"Foto Frontal"},{"key":"trasera","label":"Foto Trasera"}]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := LoadChecklist(path)
	if err != nil {
		t.Fatalf("LoadChecklist: unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(list))
	}
	if list[0].Key != "frontal" || list[1].Key != "trasera" {
		t.Errorf("slot order not preserved: %+v", list)
	}
}

func TestLoadChecklistRejectsBadFiles(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty list", `[]`},
		{"duplicate key", `[{"key":"frontal","label":"A"},{"key":"frontal","label":"B"}]`},
		{"missing key", `[{"label":"A"}]`},
		{"not json", `frontal,trasera`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "checklist.json")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadChecklist(path); err == nil {
				t.Error("LoadChecklist: expected error")
			}
		})
	}
}

func TestLoadChecklistMissingFile(t *testing.T) {
	if _, err := LoadChecklist(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadChecklist: expected error for missing file")
	}
}
