package detection

import (
	"testing"

	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/analyzer"
)

func TestDensityPolicy(t *testing.T) {
	p := NewDensityPolicy(4.5, 1.2)

	tests := []struct {
		name     string
		density  float64
		alert    bool
		severity models.Severity
	}{
		{"below threshold", 3.0, false, ""},
		{"at threshold", 4.5, false, ""},
		{"medium band", 5.0, true, models.SeverityMedium},
		{"just below high band", 5.3, true, models.SeverityMedium},
		{"high", 7.0, true, models.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Classify(analyzer.Result{Density: tt.density})
			if d.ShouldAlert != tt.alert {
				t.Fatalf("ShouldAlert = %v, want %v", d.ShouldAlert, tt.alert)
			}
			if d.Severity != tt.severity {
				t.Errorf("Severity = %q, want %q", d.Severity, tt.severity)
			}
			if tt.alert && (d.Type != "bottleneck" || d.Confidence < 0.8) {
				t.Errorf("unexpected decision %+v", d)
			}
		})
	}
}

func TestKeywordPolicy(t *testing.T) {
	p := NewKeywordPolicy([]string{"smoke", "fire", "weapon", "gun", "knife", "crowd"})

	tests := []struct {
		name     string
		labels   []string
		alert    bool
		typ      string
		severity models.Severity
		message  string
	}{
		{"no labels", nil, false, "", "", ""},
		{"benign", []string{"person", "chair"}, false, "", "", ""},
		{"smoke", []string{"smoke"}, true, "fire", models.SeverityMedium, "Verified Threat: smoke"},
		{"case insensitive substring", []string{"person", "Handgun"}, true, "security", models.SeverityHigh, "Verified Threat: Handgun"},
		{"first label wins", []string{"dense crowd", "fire"}, true, "crowd", models.SeverityMedium, "Verified Threat: dense crowd"},
		{"fire", []string{"FIRE"}, true, "fire", models.SeverityHigh, "Verified Threat: FIRE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Classify(analyzer.Result{Labels: tt.labels, Confidence: 0.9})
			if d.ShouldAlert != tt.alert {
				t.Fatalf("ShouldAlert = %v, want %v", d.ShouldAlert, tt.alert)
			}
			if !tt.alert {
				return
			}
			if d.Type != tt.typ || d.Severity != tt.severity || d.Message != tt.message {
				t.Errorf("got type=%s severity=%s message=%q", d.Type, d.Severity, d.Message)
			}
		})
	}
}

func TestKeywordPolicyUnknownKeywordDefaults(t *testing.T) {
	p := NewKeywordPolicy([]string{" Drone "})
	d := p.Classify(analyzer.Result{Labels: []string{"small drone"}})
	if !d.ShouldAlert || d.Type != "anomaly" || d.Severity != models.SeverityMedium {
		t.Fatalf("unexpected decision %+v", d)
	}
	if d.BufferedMessage != "Buffered Threat: small drone" {
		t.Fatalf("unexpected buffered message %q", d.BufferedMessage)
	}
}
