package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/taxlookup/internal/model"
)

// Step is one state of a lookup attempt.
type Step interface {
	// Do runs the step against the attempt. A returned error ends the
	// attempt; steps return a *model.Failure for outcomes they recognize
	// and have already recorded.
	Do(ctx context.Context, a *Attempt) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs the steps of one attempt in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps until one fails. The returned error is always
// a *model.Failure or nil.
//
// Errors a step did not classify are recorded as an "Error" step and
// become FailureTransport; context cancellation becomes FailureCancelled.
func (p *Pipeline) Execute(ctx context.Context, a *Attempt) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("attempt cancelled",
				"step", step.Name(),
				"attempt", a.Number,
				"reason", err,
			)
			return cancelled(a, err)
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"attempt", a.Number,
			"query", a.Query.Raw(),
		)

		err := step.Do(ctx, a)
		if err == nil {
			continue
		}

		var failure *model.Failure
		switch {
		case errors.As(err, &failure):
		case ctx.Err() != nil:
			return cancelled(a, ctx.Err())
		default:
			a.Step("Error", model.StepError, err.Error())
			a.Logf("Error occurred: %s", err.Error())
			failure = model.NewFailure(model.FailureTransport, err.Error(), err)
		}

		p.logger.Debug("step failed",
			"step", step.Name(),
			"attempt", a.Number,
			"kind", failure.Kind,
			"error", failure,
		)
		a.Record.Error = failure.Message
		a.Record.FailureKind = failure.Kind
		return failure
	}
	return nil
}

func cancelled(a *Attempt, err error) *model.Failure {
	a.Step("Error", model.StepError, err.Error())
	a.Record.Error = err.Error()
	a.Record.FailureKind = model.FailureCancelled
	return model.NewFailure(model.FailureCancelled, err.Error(), err)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
