package config

import (
	"os"
	"path/filepath"
	"testing"

	"drishti-worker-go/internal/models"
)

func TestLoadRegistryDefaults(t *testing.T) {
	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	cam, ok := reg.Camera("CAM_02")
	if !ok || cam.Location != "Main Stage" || cam.ZoneID != "Z2" {
		t.Fatalf("unexpected CAM_02 entry: %+v ok=%v", cam, ok)
	}
	if len(reg.Units) != 2 {
		t.Fatalf("expected 2 seed units, got %d", len(reg.Units))
	}
	if len(reg.Actions) != 2 {
		t.Fatalf("expected 2 action rules, got %d", len(reg.Actions))
	}
}

func TestLoadRegistryFileOverridesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	body := `
units:
  - unit_id: F9
    type: firefighter
    location: Zone Z9
actions:
  - type: FIRE
    severity: Critical
    action: Deploy two firefighters
    capability: firefighter
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	if _, ok := reg.Camera("CAM_01"); !ok {
		t.Error("cameras section should keep defaults when absent from file")
	}
	if len(reg.Units) != 1 || reg.Units[0].Status != models.UnitAvailable {
		t.Errorf("unit status should default to available: %+v", reg.Units)
	}
	if reg.Actions[0].Type != "fire" || reg.Actions[0].Severity != "critical" {
		t.Errorf("action keys should be lower-cased: %+v", reg.Actions[0])
	}
}

func TestLoadRegistryRejectsBadStatus(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	body := "units:\n  - unit_id: X\n    type: medic\n    status: sleeping\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRegistry(path); err == nil {
		t.Fatal("expected error for invalid unit status")
	}
}
