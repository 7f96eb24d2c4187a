// Package command sends booking and admin commands to the server. It never
// edits local state: confirmed changes come back through the push channel
// like everyone else's.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/five82/courtside/internal/api"
	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/grid"
	"github.com/five82/courtside/internal/notify"
)

// OutcomeKind classifies how a command ended.
type OutcomeKind int

const (
	// Accepted means the server took the command. The store changes only
	// when the matching push event arrives.
	Accepted OutcomeKind = iota
	// Invalid means the command failed local validation and was not sent.
	Invalid
	// Rejected means the server refused it (slot full, duplicate, closed).
	Rejected
	// Failed means no answer: network error, 5xx or timeout.
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case Invalid:
		return "invalid"
	case Rejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Outcome is the resolved result of one command.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Classify maps an error from validation or the api package to a kind.
func Classify(err error) OutcomeKind {
	switch {
	case err == nil:
		return Accepted
	case errors.Is(err, domain.ErrInvalid):
		return Invalid
	case errors.Is(err, api.ErrRejected):
		return Rejected
	default:
		return Failed
	}
}

// Broadcaster relays admin actions to other clients.
type Broadcaster interface {
	BroadcastAdminAction(actionType string, data map[string]any) error
}

const (
	DefaultTimeout = 10 * time.Second
	defaultRate    = 5
	defaultBurst   = 3
)

// Options configures a Mutator. Commander is required.
type Options struct {
	Commander   api.Commander
	Notifier    notify.Notifier
	Broadcaster Broadcaster
	Logger      *slog.Logger
	// Timeout bounds each command, including time spent throttled.
	Timeout time.Duration
	// Rate and Burst throttle outbound commands per second.
	Rate  rate.Limit
	Burst int
}

// Mutator validates, throttles and sends commands, then reports the
// outcome as a notification.
type Mutator struct {
	commander   api.Commander
	notifier    notify.Notifier
	broadcaster Broadcaster
	logger      *slog.Logger
	timeout     time.Duration
	limiter     *rate.Limiter
	validate    *validator.Validate
}

func New(opts Options) *Mutator {
	m := &Mutator{
		commander:   opts.Commander,
		notifier:    opts.Notifier,
		broadcaster: opts.Broadcaster,
		logger:      opts.Logger,
		timeout:     opts.Timeout,
		validate:    newValidator(),
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}
	limit, burst := opts.Rate, opts.Burst
	if limit <= 0 {
		limit = defaultRate
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	m.limiter = rate.NewLimiter(limit, burst)
	return m
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
		_, err := domain.SlotMinutes(fl.Field().String())
		return err == nil
	})
	return v
}

// Book asks the server for a place in (venue, slot).
func (m *Mutator) Book(ctx context.Context, venue, slot, username string, skill domain.SkillLevel) Outcome {
	req := api.BookingRequest{VenueName: venue, TimeSlot: slot, Username: username, SkillLevel: skill}
	return m.run(ctx, "book", req, func(ctx context.Context) error {
		return m.commander.CreateBooking(ctx, req)
	}, fmt.Sprintf("Booked %s at %s", venue, slot), "Booking failed")
}

// Cancel releases the user's place in (venue, slot).
func (m *Mutator) Cancel(ctx context.Context, venue, slot, username string) Outcome {
	req := api.CancelRequest{VenueName: venue, TimeSlot: slot, Username: username}
	return m.run(ctx, "cancel", req, func(ctx context.Context) error {
		return m.commander.CancelBooking(ctx, req)
	}, fmt.Sprintf("Cancelled booking for %s at %s", venue, slot), "Cancellation failed")
}

// RequestBooking is Book without blocking the caller. The channel yields
// exactly one Outcome.
func (m *Mutator) RequestBooking(ctx context.Context, venue, slot, username string, skill domain.SkillLevel) <-chan Outcome {
	return async(func() Outcome { return m.Book(ctx, venue, slot, username, skill) })
}

// RequestCancellation is Cancel without blocking the caller.
func (m *Mutator) RequestCancellation(ctx context.Context, venue, slot, username string) <-chan Outcome {
	return async(func() Outcome { return m.Cancel(ctx, venue, slot, username) })
}

// Toggle activates a grid cell: it cancels the user's own booking or books
// an available place. For closed and full cells it does nothing and returns
// a nil channel.
func (m *Mutator) Toggle(ctx context.Context, cell grid.Cell, username string, skill domain.SkillLevel) (grid.Action, <-chan Outcome) {
	switch action := cell.Action(); action {
	case grid.Cancel:
		return action, m.RequestCancellation(ctx, cell.Venue, cell.Slot, username)
	case grid.Book:
		return action, m.RequestBooking(ctx, cell.Venue, cell.Slot, username, skill)
	default:
		return grid.None, nil
	}
}

func async(f func() Outcome) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() { ch <- f() }()
	return ch
}

// run is the common path: validate, throttle, call within the timeout,
// classify and notify.
func (m *Mutator) run(ctx context.Context, op string, req any, call func(context.Context) error, success, fallback string) Outcome {
	if err := m.check(req); err != nil {
		m.show(notify.Error, "Please fill in all fields: "+strings.Join(fieldsOf(err), ", "))
		m.logger.Debug("command invalid", "op", op, "error", err)
		return Outcome{Kind: Invalid, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.limiter.Wait(ctx)
	if err != nil {
		err = &api.TransportError{Op: op, Err: fmt.Errorf("throttled: %w", context.DeadlineExceeded)}
	} else {
		err = call(ctx)
	}

	out := Outcome{Kind: Classify(err), Err: err}
	switch out.Kind {
	case Accepted:
		m.logger.Info("command accepted", "op", op)
		m.show(notify.Success, success)
	case Rejected:
		reason := fallback
		var rejected *api.RejectedError
		if errors.As(err, &rejected) && rejected.Reason != "" {
			reason = rejected.Reason
		}
		m.logger.Info("command rejected", "op", op, "reason", reason)
		m.show(notify.Error, reason)
	default:
		m.logger.Warn("command failed", "op", op, "error", err)
		if errors.Is(err, api.ErrTimeout) {
			m.show(notify.Error, "Request timed out, please retry")
		} else {
			m.show(notify.Error, "Network error, please retry")
		}
	}
	return out
}

// check validates req and converts validator errors to a ValidationError.
func (m *Mutator) check(req any) error {
	err := m.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return &domain.ValidationError{Fields: fields}
	}
	return fmt.Errorf("validate: %w", err)
}

func fieldsOf(err error) []string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

func (m *Mutator) show(kind notify.Kind, text string) {
	if m.notifier != nil {
		m.notifier.Show(kind, text)
	}
}
