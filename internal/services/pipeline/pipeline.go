package pipeline

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/models"
)

// Result is the tagged outcome of a stage: a page is accepted onward,
// rejected with a reason, or failed with an infrastructure error.
type Result struct {
	Accepted bool
	Reason   string
	Err      error
}

// Accept passes the page to the next stage
func Accept() Result {
	return Result{Accepted: true}
}

// Reject drops the page with a human-readable reason
func Reject(reason string) Result {
	return Result{Reason: reason}
}

// Fail reports an infrastructure error; the page is dropped but counted
// as an error rather than a rejection
func Fail(err error) Result {
	return Result{Err: err}
}

// Stage is one step of the content pipeline. Stages mutate the page in
// place (scores, classification, language) and decide whether it moves on.
type Stage interface {
	Name() string
	Process(ctx context.Context, page *models.PageData) Result
}

// Pipeline runs stages in order, stopping at the first rejection or error
type Pipeline struct {
	stages []Stage
	logger arbor.ILogger
}

// New creates a pipeline with the given ordered stages
func New(logger arbor.ILogger, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages: stages,
		logger: logger,
	}
}

// Run processes a page through every stage. The returned stage name
// identifies which stage rejected or failed the page, empty on acceptance.
func (p *Pipeline) Run(ctx context.Context, page *models.PageData) (Result, string) {
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return Fail(err), stage.Name()
		}

		result := stage.Process(ctx, page)
		if result.Err != nil {
			p.logger.Error().
				Err(result.Err).
				Str("stage", stage.Name()).
				Str("url", page.URL).
				Msg("Pipeline stage failed")
			return result, stage.Name()
		}
		if !result.Accepted {
			p.logger.Debug().
				Str("stage", stage.Name()).
				Str("url", page.URL).
				Str("reason", result.Reason).
				Msg("Page rejected")
			return result, stage.Name()
		}
	}

	return Accept(), ""
}
