package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/storage"
)

var (
	// ErrNoUnitsAvailable is returned when no unit of the required capability can be claimed
	ErrNoUnitsAvailable = errors.New("no units available")
	ErrUnitNotFound     = errors.New("field unit not found")
)

const (
	// casAttempts bounds retries on one unit record when its value changed for a
	// reason other than a competing claim
	casAttempts = 3

	// releaseTimeout bounds compensating releases, which outlive the caller's context
	releaseTimeout = 5 * time.Second
)

// UnitPool is the shared field-unit pool. Every status transition is a
// compare-and-swap on the unit's record, so concurrent claims never hand the
// same unit to two events and no lock is held across store calls.
type UnitPool struct {
	store storage.Store
}

func NewUnitPool(store storage.Store) *UnitPool {
	return &UnitPool{store: store}
}

func unitKey(id string) string { return storage.PrefixUnits + id }

// Seed adds units that are not registered yet. Existing records keep their
// current status, so restarting a process never frees busy units.
func (p *UnitPool) Seed(ctx context.Context, units []models.FieldUnit) (int, error) {
	added := 0
	for _, u := range units {
		if u.Status == "" {
			u.Status = models.UnitAvailable
		}
		created, err := storage.CreateJSON(ctx, p.store, unitKey(u.UnitID), u)
		if err != nil {
			return added, fmt.Errorf("seed unit %s: %w", u.UnitID, err)
		}
		if created {
			added++
		}
	}
	return added, nil
}

// Register adds or replaces a unit
func (p *UnitPool) Register(ctx context.Context, u models.FieldUnit) error {
	if u.UnitID == "" || u.Type == "" {
		return errors.New("unit id and type are required")
	}
	if u.Status == "" {
		u.Status = models.UnitAvailable
	}
	if !u.Status.IsValid() {
		return fmt.Errorf("invalid unit status %q", u.Status)
	}
	return storage.PutJSON(ctx, p.store, unitKey(u.UnitID), u)
}

func (p *UnitPool) List(ctx context.Context) ([]models.FieldUnit, error) {
	return storage.ListJSON[models.FieldUnit](ctx, p.store, storage.PrefixUnits)
}

func (p *UnitPool) Get(ctx context.Context, id string) (models.FieldUnit, error) {
	u, _, err := p.read(ctx, id)
	return u, err
}

func (p *UnitPool) read(ctx context.Context, id string) (models.FieldUnit, []byte, error) {
	raw, err := p.store.Get(ctx, unitKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return models.FieldUnit{}, nil, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
	}
	if err != nil {
		return models.FieldUnit{}, nil, fmt.Errorf("read unit %s: %w", id, err)
	}
	var u models.FieldUnit
	if err := json.Unmarshal(raw, &u); err != nil {
		return models.FieldUnit{}, nil, fmt.Errorf("decode unit %s: %w", id, err)
	}
	return u, raw, nil
}

// transition moves unit id from status from to status to. It reports false
// when the unit is no longer in status from.
func (p *UnitPool) transition(ctx context.Context, id string, from, to models.UnitStatus) (models.FieldUnit, bool, error) {
	for range casAttempts {
		u, raw, err := p.read(ctx, id)
		if err != nil {
			return models.FieldUnit{}, false, err
		}
		if u.Status != from {
			return u, false, nil
		}

		u.Status = to
		next, err := json.Marshal(u)
		if err != nil {
			return models.FieldUnit{}, false, fmt.Errorf("encode unit %s: %w", id, err)
		}
		swapped, err := p.store.CompareAndSwap(ctx, unitKey(id), raw, next)
		if err != nil {
			return models.FieldUnit{}, false, fmt.Errorf("update unit %s: %w", id, err)
		}
		if swapped {
			return u, true, nil
		}
	}
	return models.FieldUnit{}, false, nil
}

// Claim marks n available units of capability busy and returns them. Units are
// tried in id order. On a shortfall every unit claimed so far is released and
// ErrNoUnitsAvailable is returned.
func (p *UnitPool) Claim(ctx context.Context, capability string, n int) ([]models.FieldUnit, error) {
	if n <= 0 {
		n = 1
	}

	units, err := p.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].UnitID < units[j].UnitID })

	var claimed []models.FieldUnit
	for _, u := range units {
		if len(claimed) == n {
			break
		}
		if u.Type != capability || u.Status != models.UnitAvailable {
			continue
		}
		unit, ok, err := p.transition(ctx, u.UnitID, models.UnitAvailable, models.UnitBusy)
		if err != nil {
			return nil, errors.Join(err, p.releaseAll(ctx, claimed))
		}
		if ok {
			claimed = append(claimed, unit)
		}
	}

	if len(claimed) < n {
		shortfall := fmt.Errorf("%w: need %d %s, found %d", ErrNoUnitsAvailable, n, capability, len(claimed))
		return nil, errors.Join(shortfall, p.releaseAll(ctx, claimed))
	}
	return claimed, nil
}

// Release marks a unit available again. Releasing an available unit is a no-op.
func (p *UnitPool) Release(ctx context.Context, id string) (models.FieldUnit, error) {
	u, ok, err := p.transition(ctx, id, models.UnitBusy, models.UnitAvailable)
	if err != nil {
		return models.FieldUnit{}, err
	}
	if !ok && u.Status != models.UnitAvailable {
		return models.FieldUnit{}, fmt.Errorf("release unit %s: record changed concurrently", id)
	}
	return u, nil
}

// releaseAll hands units back on a context detached from ctx's cancellation,
// so a caller that timed out or disconnected still frees what it claimed.
func (p *UnitPool) releaseAll(ctx context.Context, units []models.FieldUnit) error {
	if len(units) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	var errs []error
	for _, u := range units {
		if _, err := p.Release(ctx, u.UnitID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
