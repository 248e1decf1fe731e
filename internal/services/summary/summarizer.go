package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"drishti-worker-go/internal/models"
)

// Summarizer turns an alert into a short human-readable description
type Summarizer interface {
	Summarize(ctx context.Context, alert models.AlertMessage) (string, error)
}

// TemplateSummarizer renders "<Severity> <message> at <location> on <timestamp>."
type TemplateSummarizer struct{}

func (TemplateSummarizer) Summarize(_ context.Context, alert models.AlertMessage) (string, error) {
	severity := "Unknown"
	if alert.Severity != "" {
		s := string(alert.Severity)
		severity = strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	}

	message := alert.Message
	if message == "" {
		message = "event"
	}

	location := alert.Location
	if location == "" {
		location = "Unknown"
	}

	timestamp := "Unknown"
	if !alert.Timestamp.IsZero() {
		timestamp = alert.Timestamp.UTC().Format(time.RFC3339)
	}

	return fmt.Sprintf("%s %s at %s on %s.", severity, message, location, timestamp), nil
}
