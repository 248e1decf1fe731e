// Package summary implements the agent that turns alerts into stored,
// human-readable summary records.
package summary

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/messaging"
	"drishti-worker-go/internal/services/storage"
	"drishti-worker-go/internal/worker"
)

const (
	recordLanguage = "en"
	recordSource   = "summary-agent"

	// BroadcastType tags summary records on the live feed
	BroadcastType = "summary"
)

// Broadcaster receives every newly stored record
type Broadcaster interface {
	Broadcast(kind string, payload any)
}

// Agent consumes alert messages and stores one SummaryRecord per alert
type Agent struct {
	summarizer  Summarizer
	store       storage.Store
	broadcaster Broadcaster
	logger      zerolog.Logger
	now         func() time.Time

	processed atomic.Int64
	created   atomic.Int64
}

// NewAgent builds a summary agent. broadcaster may be nil.
func NewAgent(summarizer Summarizer, store storage.Store, broadcaster Broadcaster, logger zerolog.Logger) *Agent {
	if summarizer == nil {
		summarizer = TemplateSummarizer{}
	}
	return &Agent{
		summarizer:  summarizer,
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Handle is the worker.Handler for alert messages
func (a *Agent) Handle(ctx context.Context, d messaging.Delivery) error {
	var alert models.AlertMessage
	if err := d.Decode(&alert); err != nil {
		return worker.Permanent(fmt.Errorf("decode alert message: %w", err))
	}
	if alert.EventID == "" {
		return worker.Permanent(errors.New("alert message missing event_id"))
	}

	_, err := a.Process(ctx, alert)
	return err
}

// Process summarizes alert and stores the record. Each alert gets a fresh
// record id, remembered under the alert's event id so a redelivered alert
// resolves to the record already written.
func (a *Agent) Process(ctx context.Context, alert models.AlertMessage) (models.SummaryRecord, error) {
	a.processed.Add(1)
	logger := logging.WithEvent(a.logger, alert.EventID)

	id, err := a.recordID(ctx, alert.EventID)
	if err != nil {
		return models.SummaryRecord{}, err
	}

	var existing models.SummaryRecord
	err = storage.GetJSON(ctx, a.store, storage.PrefixSummaries+id, &existing)
	switch {
	case err == nil:
		logger.Debug().Str("summary_id", id).Msg("Summary already stored for alert")
		return existing, nil
	case !errors.Is(err, storage.ErrNotFound):
		return models.SummaryRecord{}, fmt.Errorf("read summary %s: %w", id, err)
	}

	text, err := a.summarizer.Summarize(ctx, alert)
	if err != nil {
		return models.SummaryRecord{}, fmt.Errorf("summarize alert %s: %w", alert.EventID, err)
	}

	record := models.SummaryRecord{
		ID:        id,
		EventIDs:  append([]string{alert.EventID}, alert.RelatedEventIDs...),
		Summary:   text,
		Timestamp: a.now(),
		Language:  recordLanguage,
		Source:    recordSource,
	}

	created, err := storage.CreateJSON(ctx, a.store, storage.PrefixSummaries+id, record)
	if err != nil {
		return models.SummaryRecord{}, fmt.Errorf("store summary %s: %w", id, err)
	}
	if !created {
		// a concurrent delivery of the same alert won
		if err := storage.GetJSON(ctx, a.store, storage.PrefixSummaries+id, &existing); err != nil {
			return models.SummaryRecord{}, fmt.Errorf("read summary %s: %w", id, err)
		}
		return existing, nil
	}

	a.created.Add(1)
	logger.Info().Str("summary_id", id).Msg("📝 " + text)

	if a.broadcaster != nil {
		a.broadcaster.Broadcast(BroadcastType, record)
	}
	return record, nil
}

func (a *Agent) recordID(ctx context.Context, eventID string) (string, error) {
	key := storage.PrefixSummaryIndex + eventID
	id := uuid.NewString()

	created, err := a.store.Create(ctx, key, []byte(id))
	if err != nil {
		return "", fmt.Errorf("index summary for %s: %w", eventID, err)
	}
	if created {
		return id, nil
	}

	existing, err := a.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read summary index for %s: %w", eventID, err)
	}
	return string(existing), nil
}

// List returns every stored summary in storage order
func (a *Agent) List(ctx context.Context) ([]models.SummaryRecord, error) {
	return storage.ListJSON[models.SummaryRecord](ctx, a.store, storage.PrefixSummaries)
}

// Stats describes the agent's activity
type Stats struct {
	Processed int64 `json:"processed"`
	Created   int64 `json:"created"`
}

func (a *Agent) Stats() Stats {
	return Stats{Processed: a.processed.Load(), Created: a.created.Load()}
}
