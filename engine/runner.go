package engine

import (
	"context"
	"errors"
	"runtime"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/spec-unit/internal/source"
	"github.com/flanksource/spec-unit/models"
	"github.com/flanksource/spec-unit/parser"
	"golang.org/x/sync/errgroup"
)

// Runner parses and evaluates a batch of files in parallel
type Runner struct {
	parser  *parser.Parser
	engine  *Engine
	reader  *source.Reader
	workers int
}

// RunnerOptions configures the runner behavior
type RunnerOptions struct {
	// Workers bounds the number of files processed at once, runtime.NumCPU() when <= 0
	Workers int
	Reader  *source.Reader
}

func NewRunner(p *parser.Parser, e *Engine, opts RunnerOptions) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Reader == nil {
		opts.Reader = source.NewReader()
	}
	return &Runner{parser: p, engine: e, reader: opts.Reader, workers: opts.Workers}
}

// Reader returns the source cache shared with the reporters
func (r *Runner) Reader() *source.Reader {
	return r.reader
}

// Run processes files and merges the per-file results in input order before the
// final sort. A file that cannot be read or parsed is recorded as unparseable and
// the run continues. Only context cancellation returns an error.
func (r *Runner) Run(ctx context.Context, files []string) (*models.AnalysisResult, error) {
	results := make([]models.FileReport, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(r.workers, len(files))))

	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// each goroutine owns results[i]
			results[i] = r.runFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &models.AnalysisResult{
		Violations: []models.Violation{},
		FileCount:  len(files),
		RuleCount:  len(r.engine.Rules()),
	}
	for _, report := range results {
		if report.Unparseable != nil {
			result.Unparseable = append(result.Unparseable, *report.Unparseable)
			continue
		}
		result.Violations = append(result.Violations, report.Violations...)
		result.RuleErrors = append(result.RuleErrors, report.RuleErrors...)
	}
	SortViolations(result.Violations)
	return result, nil
}

func (r *Runner) runFile(path string) models.FileReport {
	text, err := r.reader.Read(path)
	if err != nil {
		logger.Warnf("skipping %s: %v", path, err)
		return models.FileReport{File: path, Unparseable: &models.ParseFailure{File: path, Message: err.Error()}}
	}

	tree, err := r.parser.Parse(path, text)
	if err != nil {
		failure := &models.ParseFailure{File: path, Message: err.Error()}
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			failure.Line = perr.Line
			failure.Message = perr.Message
		}
		logger.Warnf("%s is unparseable: %v", path, err)
		return models.FileReport{File: path, Unparseable: failure}
	}

	eval := r.engine.Evaluate(tree)
	logger.Debugf("%s: %d nodes, %d violations", path, tree.Count(), len(eval.Violations))
	return models.FileReport{File: path, Violations: eval.Violations, RuleErrors: eval.RuleErrors}
}
