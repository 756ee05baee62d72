// Package docmark is the public entry point for converting one document. It
// wires validation, workspace management, strategy execution and output
// placement around the internal pipeline.
package docmark

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spherical/docmark/internal/output"
	"github.com/spherical/docmark/internal/pdf"
	"github.com/spherical/docmark/internal/strategy"
	"github.com/spherical/docmark/internal/workspace"
)

// Options selects the strategy and its parameters for one run.
type Options struct {
	Strategy      string
	ProblemPages  string
	SolutionPages string
	BaseStrategy  string
	KeepTemp      bool
}

// Runner converts documents.
type Runner struct {
	deps strategy.Deps
	log  zerolog.Logger
}

// NewRunner builds a runner around prepared strategy dependencies.
func NewRunner(deps strategy.Deps) *Runner {
	return &Runner{deps: deps, log: deps.Log}
}

// Convert processes one document end to end: the final markup lands beside
// the source, published images land in images/<stem>/ with the description
// sidecar. An empty final markup is the sole condition marking the job
// failed.
func (r *Runner) Convert(ctx context.Context, source string, opts Options) error {
	if err := pdf.ValidatePath(source); err != nil {
		return err
	}
	stem := pdf.Stem(source)

	strat, err := strategy.New(opts.Strategy, r.deps)
	if err != nil {
		return err
	}

	ws, err := workspace.New(stem)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ws.Cleanup(opts.KeepTemp); cerr != nil {
			r.log.Warn().Err(cerr).Str("dir", ws.Dir).Msg("workspace cleanup failed")
		} else if opts.KeepTemp {
			r.log.Info().Str("dir", ws.Dir).Msg("workspace retained")
		}
	}()

	r.log.Info().Str("document", source).Str("strategy", strat.Name()).Msg("conversion started")

	result, err := strat.Process(ctx, &strategy.Job{
		Source:        source,
		Workspace:     ws,
		ProblemPages:  opts.ProblemPages,
		SolutionPages: opts.SolutionPages,
		BaseStrategy:  opts.BaseStrategy,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(result.Markup) == "" {
		return fmt.Errorf("model produced empty markup for %s", source)
	}

	paths := output.FinalPaths(source)
	markup := output.RewriteImagePaths(result.Markup, stem)
	if err := output.SaveMarkup(paths.Markup, markup); err != nil {
		return err
	}
	if err := output.CopyImages(ws.ImagesDir, paths.ImagesDir, result.KeepImage); err != nil {
		return err
	}
	if err := output.SaveDescriptions(paths.ImagesDir, result.Descriptions); err != nil {
		return err
	}

	r.log.Info().Str("markup", paths.Markup).Msg("conversion complete")
	return nil
}
