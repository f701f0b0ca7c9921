package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/notionsync/internal/model"
)

// Step is one stage of exporting a document. A step reads what earlier steps
// put into the document and adds its own part.
//
// Design decision: Problems that leave the document usable (a missing tag,
// a failed image) are recorded on the document and Do returns nil. Do returns
// an error only when the remaining steps must not run, for example when the
// body could not be assembled and writing it would replace a good export.
type Step interface {
	// Do runs the step on doc.
	Do(ctx context.Context, doc *model.Document) error

	// Name identifies the step in logs and in doc.Steps.
	Name() string
}

// Pipeline runs an ordered list of steps over one document at a time.
// A Pipeline holds no per-document state, but BatchProcessor still builds
// one per document so steps may keep state of their own.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running the remaining steps after a step fails.
// The failure is still recorded in doc.Err.
//
// Design decision: The default is to stop, because a document whose body
// could not be assembled should not overwrite a previous good export.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends step. Steps run in the order they were added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	for _, s := range steps {
		p.AddStep(s)
	}
}

// Execute runs the steps over doc.
//
// The context is checked before each step; a cancelled document is marked
// incomplete and keeps what the finished steps produced. Every completed
// step is appended to doc.Steps. A failing step is wrapped in a *StepError,
// stored in doc.Err and, unless WithContinueOnError is set, returned.
func (p *Pipeline) Execute(ctx context.Context, doc *model.Document) error {
	log := p.logger.With("document", doc.ID)

	for _, step := range p.steps {
		name := step.Name()

		if err := ctx.Err(); err != nil {
			log.Warn("pipeline cancelled", "step", name, "reason", err)
			doc.Complete = false
			doc.Err = err
			return err
		}

		start := time.Now()
		err := step.Do(ctx, doc)
		elapsed := time.Since(start)

		if err != nil {
			log.Error("step failed", "step", name, "elapsed", elapsed, "error", err)
			doc.Err = &StepError{Step: name, Err: err}
			if !p.continueOnError {
				return doc.Err
			}
		} else {
			log.Debug("step done", "step", name, "elapsed", elapsed)
		}

		doc.Steps = append(doc.Steps, name)
	}
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
