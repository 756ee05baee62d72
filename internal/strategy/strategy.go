// Package strategy implements the four document processing strategies. Each
// strategy is a sequential pipeline over the shared gateway; later calls
// depend on the accumulated conversation state of earlier ones, so a single
// job never runs internal concurrency.
package strategy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/spherical/docmark/internal/config"
	"github.com/spherical/docmark/internal/llm"
	"github.com/spherical/docmark/internal/output"
	"github.com/spherical/docmark/internal/pdf"
	"github.com/spherical/docmark/internal/workspace"
)

// Selectors accepted on the command line.
const (
	SelectorTextBased       = "text-based"
	SelectorVisionGuided    = "vision-guided"
	SelectorHandwritten     = "handwritten"
	SelectorProblemSolution = "problem-solution"
)

// Job describes one document processing run.
type Job struct {
	Source    string
	Workspace *workspace.Workspace
	// Pages restricts processing to a sub-range. Nil means the whole document.
	Pages *Span
	// Problem-solution parameters; unused by the other strategies.
	ProblemPages  string
	SolutionPages string
	BaseStrategy  string
}

// Result is the outcome of a strategy run.
type Result struct {
	Markup string
	// Descriptions maps image filenames to their sidecar entries.
	Descriptions map[string]output.DescriptionEntry
	// KeepImage filters which workspace images are published. Nil keeps all.
	KeepImage func(name string) bool
}

// Strategy is the shared processing contract. Process returns the final
// markup; an empty result marks the job failed at the caller.
type Strategy interface {
	Name() string
	Process(ctx context.Context, job *Job) (Result, error)
}

// Deps are the collaborators every strategy draws from.
type Deps struct {
	Gateway *llm.Gateway
	Open    pdf.Opener
	Models  config.ModelsConfig
	Render  config.RenderConfig
	Log     zerolog.Logger
}

// New constructs the strategy for a selector.
func New(selector string, deps Deps) (Strategy, error) {
	switch selector {
	case SelectorTextBased:
		return &TextFirst{deps: deps}, nil
	case SelectorVisionGuided:
		return &VisionGuided{deps: deps}, nil
	case SelectorHandwritten:
		return &Handwritten{deps: deps}, nil
	case SelectorProblemSolution:
		return &ProblemSolution{deps: deps}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", selector)
	}
}

// Pipeline phases, logged at each transition.
const (
	phaseExtracting = "extracting"
	phaseInvoking   = "invoking-model"
	phaseComposing  = "composing"
	phaseDone       = "done"
)

func logPhase(log zerolog.Logger, strategy, phase string) {
	log.Info().Str("strategy", strategy).Str("phase", phase).Msg("processing")
}

// jobSpan resolves the job's page restriction against the document.
func jobSpan(job *Job, pageCount int) Span {
	if job.Pages != nil {
		return *job.Pages
	}
	return Span{First: 1, Last: pageCount}
}

func mediaTypeFor(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	default:
		return "image/png"
	}
}

// renderSpan rasterizes the span's pages in order.
func renderSpan(doc pdf.Document, span Span, scale float64) ([][]byte, error) {
	images := make([][]byte, 0, span.Last-span.First+1)
	for page := span.First; page <= span.Last; page++ {
		img, err := doc.RenderPage(page, scale)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}
