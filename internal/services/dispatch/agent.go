// Package dispatch maps critical events to field actions, allocates field
// units from the shared pool and issues dispatch instructions.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/messaging"
	"drishti-worker-go/internal/services/notification"
	"drishti-worker-go/internal/services/storage"
	"drishti-worker-go/internal/worker"
)

// Outcome statuses
const (
	StatusDispatched = "dispatched"
	StatusExisting   = "existing"
	StatusEscalated  = "escalated"
	StatusRejected   = "rejected"

	// BroadcastType tags dispatch instructions on the live feed
	BroadcastType = "dispatch"
)

const (
	// claimLease bounds how long a crashed delivery blocks an event's allocation
	claimLease = 30 * time.Second
	claimPoll  = 20 * time.Millisecond
)

// Notifier is the notification fan-out used for unit and supervisor alerts
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification) notification.Report
}

type Broadcaster interface {
	Broadcast(kind string, payload any)
}

// Config parametrizes the dispatch agent
type Config struct {
	UnitsPerEvent        int
	DefaultETA           float64
	SupervisorRecipients []string
}

// Outcome is the result of dispatching one critical event
type Outcome struct {
	Status      string                      `json:"status"`
	Action      string                      `json:"action"`
	Instruction *models.DispatchInstruction `json:"instruction,omitempty"`
	Escalation  *models.Escalation          `json:"escalation,omitempty"`
	Rejection   *models.DispatchRejection   `json:"rejection,omitempty"`
}

type Agent struct {
	cfg         Config
	mapper      ActionMapper
	pool        *UnitPool
	store       storage.Store
	notifier    Notifier
	broadcaster Broadcaster
	logger      zerolog.Logger
	now         func() time.Time

	received   atomic.Int64
	dispatched atomic.Int64
	escalated  atomic.Int64
	rejected   atomic.Int64
}

// NewAgent builds a dispatch agent. notifier and broadcaster may be nil.
func NewAgent(cfg Config, mapper ActionMapper, pool *UnitPool, store storage.Store, notifier Notifier, broadcaster Broadcaster, logger zerolog.Logger) *Agent {
	if cfg.UnitsPerEvent <= 0 {
		cfg.UnitsPerEvent = 1
	}
	if cfg.DefaultETA <= 0 {
		cfg.DefaultETA = 5
	}
	return &Agent{
		cfg:         cfg,
		mapper:      mapper,
		pool:        pool,
		store:       store,
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Handle is the worker.Handler for critical events. A rejected event is
// acknowledged: running out of units is an outcome, not a failure to retry.
func (a *Agent) Handle(ctx context.Context, d messaging.Delivery) error {
	var event models.CriticalEvent
	if err := d.Decode(&event); err != nil {
		return worker.Permanent(fmt.Errorf("decode critical event: %w", err))
	}
	if err := validate(event); err != nil {
		return worker.Permanent(err)
	}

	_, err := a.Dispatch(ctx, event)
	if errors.Is(err, ErrNoUnitsAvailable) {
		return worker.Permanent(err)
	}
	return err
}

func validate(e models.CriticalEvent) error {
	switch {
	case e.EventID == "":
		return errors.New("critical event missing eventId")
	case e.Type == "":
		return errors.New("critical event missing type")
	case e.Severity == "":
		return errors.New("critical event missing severity")
	}
	return nil
}

// Dispatch runs one critical event through action mapping, unit allocation
// and instruction delivery. It is safe to call again for the same event id:
// an existing instruction is returned without claiming more units.
func (a *Agent) Dispatch(ctx context.Context, event models.CriticalEvent) (Outcome, error) {
	a.received.Add(1)
	logger := logging.WithEvent(a.logger, event.EventID)

	if existing, ok, err := a.lookup(ctx, event.EventID); err != nil {
		return Outcome{}, err
	} else if ok {
		logger.Info().Str("action", existing.Action).Msg("Dispatch instruction already exists")
		return Outcome{Status: StatusExisting, Action: existing.Action, Instruction: &existing}, nil
	}

	action := a.mapper.Map(event.Type, event.Severity)
	logger.Info().
		Str("type", event.Type).
		Str("severity", string(event.Severity)).
		Str("action", action.Name).
		Msg("Critical event received")

	if !action.RequiresUnits() {
		return a.escalate(ctx, event, action, logger)
	}

	token, existing, err := a.acquire(ctx, event.EventID)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil {
		logger.Info().Str("action", existing.Action).Msg("Event dispatched by a concurrent delivery")
		return Outcome{Status: StatusExisting, Action: existing.Action, Instruction: existing}, nil
	}

	units, err := a.pool.Claim(ctx, action.Capability, a.cfg.UnitsPerEvent)
	if errors.Is(err, ErrNoUnitsAvailable) {
		out, rerr := a.reject(ctx, event, action, err, logger)
		a.releaseClaim(ctx, event.EventID, token, logger)
		return out, rerr
	}
	if err != nil {
		a.releaseClaim(ctx, event.EventID, token, logger)
		return Outcome{}, err
	}

	instruction := models.DispatchInstruction{
		EventID:   event.EventID,
		Action:    action.Name,
		Units:     units,
		Location:  event.Location,
		Timestamp: a.now(),
		ETA:       a.cfg.DefaultETA,
	}

	created, err := storage.CreateJSON(ctx, a.store, storage.PrefixInstructions+event.EventID, instruction)
	if err != nil || !created {
		if rerr := a.pool.releaseAll(ctx, units); rerr != nil {
			logger.Error().Err(rerr).Msg("Failed to release claimed units")
		}
	}
	if err != nil {
		a.releaseClaim(ctx, event.EventID, token, logger)
		return Outcome{}, fmt.Errorf("store dispatch instruction: %w", err)
	}
	if !created {
		existing, ok, err := a.lookup(ctx, event.EventID)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			return Outcome{}, fmt.Errorf("dispatch instruction for %s vanished", event.EventID)
		}
		logger.Info().Msg("Lost dispatch race to a concurrent delivery, released units")
		return Outcome{Status: StatusExisting, Action: existing.Action, Instruction: &existing}, nil
	}

	a.dispatched.Add(1)
	logger.Info().
		Str("action", action.Name).
		Int("units", len(units)).
		Str("unit_id", units[0].UnitID).
		Msg("🚒 Dispatch instruction issued")

	a.notifyUnits(ctx, event, instruction, logger)
	if a.broadcaster != nil {
		a.broadcaster.Broadcast(BroadcastType, instruction)
	}

	return Outcome{Status: StatusDispatched, Action: action.Name, Instruction: &instruction}, nil
}

// claimMarker records which delivery of an event owns its unit allocation
type claimMarker struct {
	Owner    string    `json:"owner"`
	Released bool      `json:"released"`
	Expires  time.Time `json:"expires"`
}

// acquire takes the allocation claim for eventID and returns its token. While
// another delivery holds the claim it waits, returning that delivery's
// instruction once stored. A released or expired claim is taken over.
func (a *Agent) acquire(ctx context.Context, eventID string) (string, *models.DispatchInstruction, error) {
	key := storage.PrefixClaims + eventID
	token := uuid.NewString()

	ticker := time.NewTicker(claimPoll)
	defer ticker.Stop()

	for {
		mine, err := json.Marshal(claimMarker{Owner: token, Expires: a.now().Add(claimLease)})
		if err != nil {
			return "", nil, fmt.Errorf("encode claim %s: %w", eventID, err)
		}
		created, err := a.store.Create(ctx, key, mine)
		if err != nil {
			return "", nil, fmt.Errorf("claim event %s: %w", eventID, err)
		}
		if created {
			return token, nil, nil
		}

		in, ok, err := a.lookup(ctx, eventID)
		if err != nil {
			return "", nil, err
		}
		if ok {
			return "", &in, nil
		}

		raw, err := a.store.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("read claim %s: %w", eventID, err)
		}
		var held claimMarker
		if err := json.Unmarshal(raw, &held); err != nil || held.Released || a.now().After(held.Expires) {
			swapped, err := a.store.CompareAndSwap(ctx, key, raw, mine)
			if err != nil {
				return "", nil, fmt.Errorf("take over claim %s: %w", eventID, err)
			}
			if swapped {
				return token, nil, nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// releaseClaim lets the next delivery of eventID allocate. It runs detached
// from ctx's cancellation like the unit release it accompanies.
func (a *Agent) releaseClaim(ctx context.Context, eventID, token string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	key := storage.PrefixClaims + eventID
	raw, err := a.store.Get(ctx, key)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read dispatch claim")
		return
	}
	var held claimMarker
	if err := json.Unmarshal(raw, &held); err != nil || held.Owner != token {
		return
	}
	held.Released = true
	next, err := json.Marshal(held)
	if err != nil {
		return
	}
	if _, err := a.store.CompareAndSwap(ctx, key, raw, next); err != nil {
		logger.Error().Err(err).Msg("Failed to release dispatch claim")
	}
}

// notifyUnits sends one push per unit. Failures are logged and never undo the instruction.
func (a *Agent) notifyUnits(ctx context.Context, event models.CriticalEvent, in models.DispatchInstruction, logger zerolog.Logger) {
	if a.notifier == nil {
		return
	}
	for _, u := range in.Units {
		n := notification.Notification{
			Subject:  "Dispatch for Event " + event.EventID,
			Body:     fmt.Sprintf("Action: %s, Location: %s", in.Action, event.Location),
			Location: event.Location,
			Channels: []notification.Channel{notification.ChannelPush},
			Data: map[string]string{
				"event_id": event.EventID,
				"unit_id":  u.UnitID,
				"action":   in.Action,
			},
		}
		if u.NotificationAddress != "" {
			n.Tokens = []string{u.NotificationAddress}
		}

		report := a.notifier.Notify(ctx, n)
		if !report.Delivered() {
			logger.Warn().Str("unit_id", u.UnitID).Msg("Unit notification failed, instruction stands")
		}
	}
}

// escalate routes an event without a unit requirement to the supervisors, once per event
func (a *Agent) escalate(ctx context.Context, event models.CriticalEvent, action Action, logger zerolog.Logger) (Outcome, error) {
	esc := models.Escalation{
		EventID:    event.EventID,
		Action:     action.Name,
		Type:       event.Type,
		Severity:   event.Severity,
		Location:   event.Location,
		Recipients: a.cfg.SupervisorRecipients,
		Timestamp:  a.now(),
	}

	created, err := storage.CreateJSON(ctx, a.store, storage.PrefixEscalations+event.EventID, esc)
	if err != nil {
		return Outcome{}, fmt.Errorf("store escalation: %w", err)
	}
	if !created {
		if err := storage.GetJSON(ctx, a.store, storage.PrefixEscalations+event.EventID, &esc); err != nil {
			return Outcome{}, fmt.Errorf("read escalation: %w", err)
		}
		return Outcome{Status: StatusEscalated, Action: esc.Action, Escalation: &esc}, nil
	}

	a.escalated.Add(1)
	logger.Info().Str("action", action.Name).Msg("No unit policy for event, notifying supervisors")

	if a.notifier != nil {
		report := a.notifier.Notify(ctx, notification.Notification{
			Recipients: a.cfg.SupervisorRecipients,
			Subject:    fmt.Sprintf("Supervisor attention: %s (%s)", event.Type, event.Severity),
			Body:       fmt.Sprintf("Event %s requires supervisor review. Action: %s", event.EventID, action.Name),
			Location:   event.Location,
			Data:       map[string]string{"event_id": event.EventID},
		})
		if !report.Delivered() {
			logger.Warn().Msg("Supervisor notification failed on every channel")
		}
	}

	return Outcome{Status: StatusEscalated, Action: action.Name, Escalation: &esc}, nil
}

func (a *Agent) reject(ctx context.Context, event models.CriticalEvent, action Action, cause error, logger zerolog.Logger) (Outcome, error) {
	rej := models.DispatchRejection{
		EventID:    event.EventID,
		Action:     action.Name,
		Capability: action.Capability,
		Reason:     cause.Error(),
		Timestamp:  a.now(),
	}
	if _, err := storage.CreateJSON(ctx, a.store, storage.PrefixRejections+event.EventID, rej); err != nil {
		logger.Error().Err(err).Msg("Failed to record dispatch rejection")
	}

	a.rejected.Add(1)
	logger.Warn().
		Str("action", action.Name).
		Str("capability", action.Capability).
		Msg("⚠️ No available units for event")
	return Outcome{Status: StatusRejected, Action: action.Name, Rejection: &rej}, cause
}

func (a *Agent) lookup(ctx context.Context, eventID string) (models.DispatchInstruction, bool, error) {
	var in models.DispatchInstruction
	err := storage.GetJSON(ctx, a.store, storage.PrefixInstructions+eventID, &in)
	if errors.Is(err, storage.ErrNotFound) {
		return in, false, nil
	}
	if err != nil {
		return in, false, fmt.Errorf("read dispatch instruction %s: %w", eventID, err)
	}
	return in, true, nil
}

// Instruction returns the stored instruction for eventID or storage.ErrNotFound
func (a *Agent) Instruction(ctx context.Context, eventID string) (models.DispatchInstruction, error) {
	in, ok, err := a.lookup(ctx, eventID)
	if err != nil {
		return in, err
	}
	if !ok {
		return in, storage.ErrNotFound
	}
	return in, nil
}

func (a *Agent) Instructions(ctx context.Context) ([]models.DispatchInstruction, error) {
	return storage.ListJSON[models.DispatchInstruction](ctx, a.store, storage.PrefixInstructions)
}

func (a *Agent) Rejections(ctx context.Context) ([]models.DispatchRejection, error) {
	return storage.ListJSON[models.DispatchRejection](ctx, a.store, storage.PrefixRejections)
}

func (a *Agent) Escalations(ctx context.Context) ([]models.Escalation, error) {
	return storage.ListJSON[models.Escalation](ctx, a.store, storage.PrefixEscalations)
}

func (a *Agent) Pool() *UnitPool { return a.pool }

// Stats describes the agent's activity
type Stats struct {
	Received   int64 `json:"received"`
	Dispatched int64 `json:"dispatched"`
	Escalated  int64 `json:"escalated"`
	Rejected   int64 `json:"rejected"`
}

func (a *Agent) Stats() Stats {
	return Stats{
		Received:   a.received.Load(),
		Dispatched: a.dispatched.Load(),
		Escalated:  a.escalated.Load(),
		Rejected:   a.rejected.Load(),
	}
}
