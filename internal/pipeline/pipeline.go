package pipeline

import (
	"context"
	"errors"
	"log/slog"
)

// Step is one phase of an archive run.
type Step interface {
	// Do executes the step. Non-fatal problems that still let the step
	// produce something should be recorded in the state and return nil.
	Do(ctx context.Context, st *State) error

	// Name returns the step's name for logging.
	Name() string
}

// ErrNothingDiscovered is returned when discovery found no asset and a
// listing failed, which points at an unreachable site.
var ErrNothingDiscovered = errors.New("no assets discovered")

// FatalError marks a step failure that must stop the run, such as an
// artifact that could not be written.
type FatalError struct {
	Step string
	Err  error
}

func (e *FatalError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a FatalError of step.
func Fatal(step string, err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Step: step, Err: err}
}

// IsFatal reports whether err stops the run.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps going after a non-fatal step error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// after a non-fatal failure. Fatal errors always stop the run.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
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

// Execute runs all steps in sequence. Cancellation is checked before each
// step; steps handle it themselves while running.
//
// Every step error is recorded in st.Summary.Errors. Execute returns the
// context error on cancellation, the error of a fatal step, the first
// error when continueOnError is false, and nil otherwise.
func (p *Pipeline) Execute(ctx context.Context, st *State) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			return err
		}

		p.logger.Debug("executing step", "step", step.Name())

		if err := step.Do(ctx, st); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", err,
			)
			st.Summary.Errors = append(st.Summary.Errors, step.Name()+": "+err.Error())

			if ctx.Err() != nil {
				return ctx.Err()
			}
			if IsFatal(err) || !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed", "step", step.Name())
		}

		st.Performed = append(st.Performed, step.Name())
	}
	return nil
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
