package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// ChecklistItem is one slot of the photo checklist
type ChecklistItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Checklist is the ordered set of photo slots expected on a submission.
// The slot list has changed names and members between operational
// revisions, so it is data rather than a type: deployments can override
// it with a JSON file and no schema migration.
type Checklist []ChecklistItem

// DefaultChecklist returns the standard 15-slot vehicle checklist
func DefaultChecklist() Checklist {
	return Checklist{
		{Key: "frontal", Label: "Foto Frontal"},
		{Key: "panoramico", Label: "Foto Panorámica"},
		{Key: "izquierda", Label: "Foto Parte Izquierda"},
		{Key: "llanta_p1", Label: "Foto Llanta P1"},
		{Key: "llanta_p3", Label: "Foto Llanta P3"},
		{Key: "panoramico_interno", Label: "Foto Panorámica Interna"},
		{Key: "interior_delantera", Label: "Foto Interior Delantera"},
		{Key: "interior_trasera", Label: "Foto Interior Trasera"},
		{Key: "interior_techo", Label: "Foto Techo Interior"},
		{Key: "kit_carretera", Label: "Foto Kit Carretera"},
		{Key: "repuesto_gata", Label: "Foto Repuesto y Llave Pernos"},
		{Key: "trasera", Label: "Foto Trasera"},
		{Key: "llanta_p4", Label: "Foto Llanta P4"},
		{Key: "llanta_p2", Label: "Foto Llanta P2"},
		{Key: "derecha", Label: "Foto Parte Derecha"},
	}
}

// LoadChecklist reads a checklist from a JSON file, falling back to the
// default list when no path is configured
func LoadChecklist(path string) (Checklist, error) {
	if path == "" {
		return DefaultChecklist(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist file: %w", err)
	}

	var list Checklist
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse checklist file: %w", err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("checklist file %s contains no items", path)
	}

	seen := make(map[string]bool, len(list))
	for _, item := range list {
		if item.Key == "" {
			return nil, fmt.Errorf("checklist file %s contains an item without a key", path)
		}
		if seen[item.Key] {
			return nil, fmt.Errorf("duplicate checklist key %q in %s", item.Key, path)
		}
		seen[item.Key] = true
	}

	return list, nil
}

// Has reports whether the checklist contains the given slot key
func (c Checklist) Has(key string) bool {
	for _, item := range c {
		if item.Key == key {
			return true
		}
	}
	return false
}
