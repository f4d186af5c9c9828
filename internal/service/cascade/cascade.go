// Package cascade tries an ordered list of strategies for one data need and
// reports which one produced data and at what fidelity.
package cascade

import (
	"context"
	"errors"
	"strings"
	"time"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/domain/repository"
	"SectorPulse/pkg/logger"
)

// State is the position of a cascade in its state machine.
type State string

const (
	NotTried       State = "not_tried"
	TrialPrimary   State = "trial_primary"
	TrialSecondary State = "trial_secondary"
	TrialTertiary  State = "trial_tertiary"
	Succeeded      State = "succeeded"
	Exhausted      State = "exhausted"
)

// trialState maps a strategy position to its trial state. Positions past the
// third share TrialTertiary.
func trialState(i int) State {
	switch i {
	case 0:
		return TrialPrimary
	case 1:
		return TrialSecondary
	default:
		return TrialTertiary
	}
}

// Strategy is one way of satisfying a need.
type Strategy[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// Attempt records one strategy trial.
type Attempt struct {
	Strategy  string        `json:"strategy"`
	State     State         `json:"state"`
	ErrorKind string        `json:"error_kind"`
	Duration  time.Duration `json:"duration"`
}

// Outcome is the tagged result of a cascade. Value is the zero value unless
// Status is success or degraded.
type Outcome[T any] struct {
	Need     string
	Value    T
	Status   models.Status
	Strategy string
	State    State
	Attempts []Attempt
	Err      error
}

// Ok reports whether any strategy produced data.
func (o Outcome[T]) Ok() bool { return o.State == Succeeded }

// Degradation describes a non-success outcome for a report, or nil.
func (o Outcome[T]) Degradation(entity string) *models.Degradation {
	if o.Status == models.StatusSuccess {
		return nil
	}
	d := &models.Degradation{
		Need:     NeedKind(o.Need),
		Entity:   entity,
		Status:   o.Status,
		Strategy: o.Strategy,
	}
	if o.Err != nil {
		d.Reason = domain.KindLabel(o.Err)
	} else if o.Status == models.StatusDegraded {
		d.Reason = "fallback"
	}
	return d
}

// NeedKind strips the entity part of a need key ("series/005930" -> "series").
func NeedKind(need string) string {
	if i := strings.IndexByte(need, '/'); i >= 0 {
		return need[:i]
	}
	return need
}

// Need joins a need kind and its subject.
func Need(kind, subject string) string { return kind + "/" + subject }

// Controller runs cascades and reports them to logs and metrics.
type Controller struct {
	log     *logger.Logger
	metrics repository.Metrics
}

func NewController(log *logger.Logger, metrics repository.Metrics) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = repository.NopMetrics{}
	}
	return &Controller{log: log.With(logger.String("component", "cascade")), metrics: metrics}
}

// Run tries strategies in order until one returns a non-empty value without
// error. The first strategy yields success, any later one degraded. When all
// fail, or ctx is cancelled, the outcome is unavailable.
func Run[T any](ctx context.Context, c *Controller, need string, empty func(T) bool, strategies ...Strategy[T]) Outcome[T] {
	out := Outcome[T]{Need: need, State: NotTried, Status: models.StatusUnavailable}
	kind := NeedKind(need)
	var lastErr error

	for i, s := range strategies {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		out.State = trialState(i)
		start := time.Now()
		v, err := s.Fetch(ctx)
		if err == nil && empty != nil && empty(v) {
			err = domain.ErrDataMissing
		}

		out.Attempts = append(out.Attempts, Attempt{
			Strategy:  s.Name,
			State:     out.State,
			ErrorKind: domain.KindLabel(err),
			Duration:  time.Since(start),
		})
		c.metrics.RecordFetch(s.Name, kind, domain.KindLabel(err))

		if err == nil {
			out.Value = v
			out.State = Succeeded
			out.Strategy = s.Name
			out.Status = models.StatusDegraded
			if i == 0 {
				out.Status = models.StatusSuccess
			}
			out.Err = nil
			c.metrics.RecordCascade(kind, string(out.Status), s.Name)
			if i > 0 {
				c.log.Debug("fallback strategy used",
					logger.String("need", need),
					logger.String("strategy", s.Name),
					logger.Int("attempts", len(out.Attempts)))
			}
			return out
		}

		lastErr = err
		if !errors.Is(err, domain.ErrDataMissing) {
			c.log.Warn("strategy failed",
				logger.String("need", kind),
				logger.String("strategy", s.Name),
				logger.String("kind", domain.KindLabel(err)))
		}
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = domain.ErrDataMissing
	}
	out.State = Exhausted
	out.Err = lastErr
	out.Status = models.StatusUnavailable
	c.metrics.RecordCascade(kind, string(out.Status), "")
	c.metrics.RecordError(domain.KindLabel(lastErr))
	c.log.Debug("cascade exhausted",
		logger.String("need", need),
		logger.Int("attempts", len(out.Attempts)),
		logger.Error(lastErr))
	return out
}

// SliceEmpty is the empty test for slice-valued needs.
func SliceEmpty[E any](v []E) bool { return len(v) == 0 }

// MapEmpty is the empty test for map-valued needs.
func MapEmpty[K comparable, V any](m map[K]V) bool { return len(m) == 0 }
