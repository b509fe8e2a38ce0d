package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/notify-dispatch/internal/domain"
	"github.com/kursadbilgin/notify-dispatch/internal/observability"
	"github.com/kursadbilgin/notify-dispatch/internal/provider"
	"go.uber.org/zap"
)

// DispatchState is a step of the WhatsApp fallback state machine.
type DispatchState string

const (
	StateNotAttempted    DispatchState = "NOT_ATTEMPTED"
	StateTryingTwilio    DispatchState = "TRYING_TWILIO"
	StateTryingCallMeBot DispatchState = "TRYING_CALLMEBOT"
	StateSucceeded       DispatchState = "SUCCEEDED"
	StateExhausted       DispatchState = "EXHAUSTED"
)

func (s DispatchState) String() string { return string(s) }

func (s DispatchState) IsTerminal() bool {
	return s == StateSucceeded || s == StateExhausted
}

type dispatchStep struct {
	state     DispatchState
	transport provider.WhatsAppTransport
}

// Trace is the full record of one dispatch, in attempt order.
type Trace struct {
	States   []DispatchState
	Attempts []Attempt
}

func (t Trace) Final() DispatchState {
	if len(t.States) == 0 {
		return StateNotAttempted
	}
	return t.States[len(t.States)-1]
}

// WhatsAppDispatcher delivers a WhatsApp message through Twilio, falling
// back to CallMeBot. Each call is independent; the dispatcher keeps no state
// between calls and is safe for concurrent use.
type WhatsAppDispatcher struct {
	steps    []dispatchStep
	logger   *zap.Logger
	recorder attemptRecorder
}

func NewWhatsAppDispatcher(twilio provider.WhatsAppTransport, callMeBot provider.WhatsAppTransport, logger *zap.Logger) (*WhatsAppDispatcher, error) {
	if twilio == nil {
		return nil, fmt.Errorf("twilio transport is required")
	}
	if callMeBot == nil {
		return nil, fmt.Errorf("callmebot transport is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WhatsAppDispatcher{
		steps: []dispatchStep{
			{state: StateTryingTwilio, transport: twilio},
			{state: StateTryingCallMeBot, transport: callMeBot},
		},
		logger:   logger,
		recorder: attemptRecorder{logger: logger, now: time.Now},
	}, nil
}

func (d *WhatsAppDispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.recorder.metrics = metrics
}

// Dispatch tries each eligible provider in order and returns the first
// success. When no provider was eligible or every attempt failed it returns
// domain.ErrNoWhatsAppProvider.
func (d *WhatsAppDispatcher) Dispatch(ctx context.Context, req domain.Request) (*domain.Result, error) {
	result, _, err := d.dispatch(ctx, req)
	return result, err
}

// DispatchVia sends through one named provider only and returns its error unchanged.
func (d *WhatsAppDispatcher) DispatchVia(ctx context.Context, name domain.ProviderName, req domain.Request) (*domain.Result, error) {
	if err := req.Validate(domain.ChannelWhatsApp); err != nil {
		return nil, err
	}

	step, ok := d.step(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown WhatsApp provider %q", domain.ErrValidation, name)
	}

	creds, err := step.transport.Resolve(req)
	if err != nil {
		d.recorder.unavailable(ctx, name, err)
		return nil, err
	}

	attempt := d.recorder.run(ctx, name, func() (*domain.Result, error) {
		return step.transport.Send(ctx, req, creds)
	})
	return attempt.Result, attempt.Err
}

// Eligible lists the providers whose credentials are complete for req, in dispatch order.
func (d *WhatsAppDispatcher) Eligible(req domain.Request) []domain.ProviderName {
	names := make([]domain.ProviderName, 0, len(d.steps))
	for _, step := range d.steps {
		if _, err := step.transport.Resolve(req); err == nil {
			names = append(names, step.transport.Name())
		}
	}
	return names
}

func (d *WhatsAppDispatcher) dispatch(ctx context.Context, req domain.Request) (*domain.Result, Trace, error) {
	trace := Trace{States: []DispatchState{StateNotAttempted}}
	if err := req.Validate(domain.ChannelWhatsApp); err != nil {
		return nil, trace, err
	}

	logger := observability.WithContextLogger(d.logger, ctx)
	var previousFailed domain.ProviderName

	for _, step := range d.steps {
		name := step.transport.Name()

		creds, err := step.transport.Resolve(req)
		if err != nil {
			logger.Debug("provider not configured, skipping",
				zap.String("provider", name.String()),
				zap.Error(err),
			)
			trace.Attempts = append(trace.Attempts, Attempt{Provider: name, Skipped: true, Err: err})
			continue
		}

		if previousFailed != "" {
			d.recorder.metrics.IncProviderFallback(previousFailed.String())
		}
		d.transition(logger, &trace, step.state)

		attempt := d.recorder.run(ctx, name, func() (*domain.Result, error) {
			return step.transport.Send(ctx, req, creds)
		})
		trace.Attempts = append(trace.Attempts, attempt)

		if attempt.Succeeded() {
			d.transition(logger, &trace, StateSucceeded)
			return attempt.Result, trace, nil
		}
		previousFailed = name
	}

	d.transition(logger, &trace, StateExhausted)
	return nil, trace, domain.ErrNoWhatsAppProvider
}

func (d *WhatsAppDispatcher) transition(logger *zap.Logger, trace *Trace, next DispatchState) {
	logger.Debug("dispatch transition",
		zap.String("from", trace.Final().String()),
		zap.String("to", next.String()),
	)
	trace.States = append(trace.States, next)
}

func (d *WhatsAppDispatcher) step(name domain.ProviderName) (dispatchStep, bool) {
	for _, step := range d.steps {
		if step.transport.Name() == name {
			return step, true
		}
	}
	return dispatchStep{}, false
}
