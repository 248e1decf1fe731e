package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"drishti-worker-go/internal/models"
)

// CameraInfo is the static location metadata of a camera
type CameraInfo struct {
	Location string `yaml:"location"`
	ZoneID   string `yaml:"zone_id"`
}

// ActionRule maps an (event type, severity) pair to a field action
type ActionRule struct {
	Type       string `yaml:"type"`
	Severity   string `yaml:"severity"`
	Action     string `yaml:"action"`
	Capability string `yaml:"capability"`
}

// Registry holds the deployment tables that are not environment variables
type Registry struct {
	Cameras map[string]CameraInfo `yaml:"cameras"`
	Units   []models.FieldUnit    `yaml:"units"`
	Actions []ActionRule          `yaml:"actions"`
}

// DefaultRegistry returns the built-in venue tables
func DefaultRegistry() *Registry {
	return &Registry{
		Cameras: map[string]CameraInfo{
			"CAM_01": {Location: "Gate 1 - North Wing", ZoneID: "Z1"},
			"CAM_02": {Location: "Main Stage", ZoneID: "Z2"},
			"CAM_03": {Location: "South Wing Exit", ZoneID: "Z3"},
		},
		Units: []models.FieldUnit{
			{UnitID: "M1", Type: "medic", Status: models.UnitAvailable, Location: "Zone Z2"},
			{UnitID: "F1", Type: "firefighter", Status: models.UnitAvailable, Location: "Zone Z1"},
		},
		Actions: []ActionRule{
			{Type: "fire", Severity: "high", Action: "Deploy firefighter", Capability: "firefighter"},
			{Type: "medical", Severity: "high", Action: "Deploy medic", Capability: "medic"},
		},
	}
}

// LoadRegistry reads the registry file at path. An empty path yields the defaults.
// Sections missing from the file keep their default values.
func LoadRegistry(path string) (*Registry, error) {
	reg := DefaultRegistry()
	if path == "" {
		return reg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}

	var file Registry
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}

	if file.Cameras != nil {
		reg.Cameras = file.Cameras
	}
	if file.Units != nil {
		reg.Units = file.Units
	}
	if file.Actions != nil {
		reg.Actions = file.Actions
	}

	for i := range reg.Units {
		if reg.Units[i].Status == "" {
			reg.Units[i].Status = models.UnitAvailable
		}
		if !reg.Units[i].Status.IsValid() {
			return nil, fmt.Errorf("registry unit %s: invalid status %q", reg.Units[i].UnitID, reg.Units[i].Status)
		}
	}
	for i := range reg.Actions {
		reg.Actions[i].Type = strings.ToLower(reg.Actions[i].Type)
		reg.Actions[i].Severity = strings.ToLower(reg.Actions[i].Severity)
	}

	return reg, nil
}

// Camera looks up a camera's metadata
func (r *Registry) Camera(id string) (CameraInfo, bool) {
	info, ok := r.Cameras[id]
	return info, ok
}
