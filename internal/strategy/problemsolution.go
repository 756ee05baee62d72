package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/spherical/docmark/internal/domain"
	"github.com/spherical/docmark/internal/llm"
	"github.com/spherical/docmark/internal/parse"
	"github.com/spherical/docmark/internal/prompt"
)

// ProblemSolution runs a base strategy over the problem pages to build the
// problem markup, then presents that markup together with images of the
// solution pages in one merge call. A stage-2 failure degrades to the
// stage-1 markup instead of failing the job.
type ProblemSolution struct {
	deps Deps
}

func (s *ProblemSolution) Name() string { return SelectorProblemSolution }

func (s *ProblemSolution) Process(ctx context.Context, job *Job) (Result, error) {
	mergePrompt, err := prompt.Load(prompt.SolutionMerge)
	if err != nil {
		return Result{}, err
	}

	doc, err := s.deps.Open(job.Source)
	if err != nil {
		return Result{}, err
	}
	defer doc.Close()
	total := doc.PageCount()

	// Both ranges are validated before any network activity.
	if job.ProblemPages == "" || job.SolutionPages == "" {
		return Result{}, domain.InvalidPageRangeError("problem-solution requires both --problem-pages and --solution-pages")
	}
	problemSpan, err := ParsePageRange(job.ProblemPages, total)
	if err != nil {
		return Result{}, err
	}
	solutionSpan, err := ParsePageRange(job.SolutionPages, total)
	if err != nil {
		return Result{}, err
	}

	baseSelector := job.BaseStrategy
	if baseSelector == "" {
		baseSelector = SelectorTextBased
	}
	if baseSelector != SelectorTextBased && baseSelector != SelectorVisionGuided {
		return Result{}, fmt.Errorf("base strategy must be %s or %s, got %q",
			SelectorTextBased, SelectorVisionGuided, baseSelector)
	}
	base, err := New(baseSelector, s.deps)
	if err != nil {
		return Result{}, err
	}

	s.deps.Log.Info().
		Str("base", baseSelector).
		Int("problem_first", problemSpan.First).Int("problem_last", problemSpan.Last).
		Int("solution_first", solutionSpan.First).Int("solution_last", solutionSpan.Last).
		Msg("two-stage processing")

	baseJob := *job
	baseJob.Pages = &problemSpan
	stage1, err := base.Process(ctx, &baseJob)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(stage1.Markup) == "" {
		return Result{}, domain.MalformedOutputError("base strategy produced empty markup")
	}
	if err := job.Workspace.WriteFile("problems_only.html", []byte(stage1.Markup)); err != nil {
		s.deps.Log.Warn().Err(err).Msg("could not save intermediate markup")
	}

	logPhase(s.deps.Log, s.Name(), phaseExtracting)
	solutionImages, err := renderSpan(doc, solutionSpan, s.deps.Render.Scale)
	if err != nil {
		return Result{}, err
	}

	logPhase(s.deps.Log, s.Name(), phaseInvoking)
	blocks := []llm.ContentBlock{llm.TextBlock(
		"Below is the HTML document holding the problems, followed by images of the solution pages. " +
			"Extract each solution, match it to its problem, and return the complete merged HTML.\n\n# Problem document\n" +
			stage1.Markup)}
	for i, img := range solutionImages {
		blocks = append(blocks,
			llm.TextBlock(fmt.Sprintf("\n--- SOLUTION PAGE %d ---", solutionSpan.First+i)),
			llm.PNGBlock(img),
		)
	}

	_, response, err := s.deps.Gateway.Invoke(ctx, llm.CallParams{
		Operation:   "solution_merge",
		System:      mergePrompt,
		UserContent: blocks,
		Model:       s.deps.Models.Merge,
	})

	logPhase(s.deps.Log, s.Name(), phaseComposing)
	merged := ""
	switch {
	case err != nil:
		s.deps.Log.Error().Err(err).Msg("solution merge failed, keeping problems-only markup")
	default:
		if m, ok := parse.ExtractTag("result", response); ok {
			merged = m
		} else {
			s.deps.Log.Warn().Msg("merge response carries no result block, keeping problems-only markup")
		}
	}

	result := stage1
	if strings.TrimSpace(merged) != "" {
		result.Markup = merged
		if err := job.Workspace.WriteFile("problems_with_solutions.html", []byte(merged)); err != nil {
			s.deps.Log.Warn().Err(err).Msg("could not save merged markup")
		}
	}

	logPhase(s.deps.Log, s.Name(), phaseDone)
	return result, nil
}
