package detection

import (
	"strings"

	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/analyzer"
)

// Decision is the outcome of classifying one analyzer result
type Decision struct {
	ShouldAlert     bool
	Type            string
	Severity        models.Severity
	Message         string
	BufferedMessage string
	Label           string
	Score           float64
	Confidence      float64
}

// AlertPolicy decides whether an analyzer result raises an alert
type AlertPolicy interface {
	Classify(res analyzer.Result) Decision
}

// DensityPolicy raises a bottleneck alert when crowd density exceeds Threshold.
// Readings above Threshold*HighMultiplier are high severity, the rest medium.
type DensityPolicy struct {
	Threshold      float64
	HighMultiplier float64
	// MinConfidence is reported when the analyzer gives no confidence
	MinConfidence float64
}

func NewDensityPolicy(threshold, highMultiplier float64) DensityPolicy {
	return DensityPolicy{Threshold: threshold, HighMultiplier: highMultiplier, MinConfidence: 0.8}
}

func (p DensityPolicy) Classify(res analyzer.Result) Decision {
	if res.Density <= p.Threshold {
		return Decision{Score: res.Density, Confidence: res.Confidence}
	}

	severity := models.SeverityMedium
	if res.Density > p.Threshold*p.HighMultiplier {
		severity = models.SeverityHigh
	}

	confidence := res.Confidence
	if confidence < p.MinConfidence {
		confidence = p.MinConfidence
	}

	return Decision{
		ShouldAlert:     true,
		Type:            "bottleneck",
		Severity:        severity,
		Message:         "High crowd density",
		BufferedMessage: "High crowd density (buffered)",
		Score:           res.Density,
		Confidence:      confidence,
	}
}

// KeywordPolicy raises an alert when any analyzer label contains one of the
// threat keywords, compared case-insensitively. The first matching label wins.
type KeywordPolicy struct {
	Keywords   []string
	Types      map[string]string
	Severities map[string]models.Severity
}

var defaultKeywordTypes = map[string]string{
	"smoke":  "fire",
	"fire":   "fire",
	"weapon": "security",
	"gun":    "security",
	"knife":  "security",
	"crowd":  "crowd",
}

var defaultKeywordSeverities = map[string]models.Severity{
	"fire":   models.SeverityHigh,
	"weapon": models.SeverityHigh,
	"gun":    models.SeverityHigh,
	"knife":  models.SeverityHigh,
	"smoke":  models.SeverityMedium,
	"crowd":  models.SeverityMedium,
}

func NewKeywordPolicy(keywords []string) KeywordPolicy {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			normalized = append(normalized, k)
		}
	}
	return KeywordPolicy{
		Keywords:   normalized,
		Types:      defaultKeywordTypes,
		Severities: defaultKeywordSeverities,
	}
}

func (p KeywordPolicy) Classify(res analyzer.Result) Decision {
	for _, label := range res.Labels {
		lower := strings.ToLower(label)
		for _, keyword := range p.Keywords {
			if !strings.Contains(lower, keyword) {
				continue
			}

			eventType, ok := p.Types[keyword]
			if !ok {
				eventType = "anomaly"
			}
			severity, ok := p.Severities[keyword]
			if !ok {
				severity = models.SeverityMedium
			}

			return Decision{
				ShouldAlert:     true,
				Type:            eventType,
				Severity:        severity,
				Message:         "Verified Threat: " + label,
				BufferedMessage: "Buffered Threat: " + label,
				Label:           label,
				Score:           res.Confidence,
				Confidence:      res.Confidence,
			}
		}
	}
	return Decision{Confidence: res.Confidence}
}
