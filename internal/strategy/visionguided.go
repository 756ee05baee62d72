package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/spherical/docmark/internal/llm"
	"github.com/spherical/docmark/internal/prompt"
)

// VisionGuided renders every page to an image and issues one multi-image
// generation call. The extracted text is supplied as the authoritative
// content; the images ground layout and positioning only.
type VisionGuided struct {
	deps Deps
}

func (s *VisionGuided) Name() string { return SelectorVisionGuided }

func (s *VisionGuided) Process(ctx context.Context, job *Job) (Result, error) {
	generationPrompt, err := prompt.Load(prompt.MarkupGeneration)
	if err != nil {
		return Result{}, err
	}

	logPhase(s.deps.Log, s.Name(), phaseExtracting)
	doc, err := s.deps.Open(job.Source)
	if err != nil {
		return Result{}, err
	}
	defer doc.Close()

	span := jobSpan(job, doc.PageCount())

	var reference strings.Builder
	for page := 1; page <= doc.PageCount(); page++ {
		pageText, err := doc.ExtractText(page)
		if err != nil {
			return Result{}, err
		}
		reference.WriteString(pageText)
	}
	referenceText := FilterPageMarkers(reference.String(), span)

	pageImages, err := renderSpan(doc, span, s.deps.Render.Scale)
	if err != nil {
		return Result{}, err
	}

	logPhase(s.deps.Log, s.Name(), phaseInvoking)
	blocks := []llm.ContentBlock{llm.TextBlock(
		"Convert this document to HTML. The reference text below is authoritative: reproduce it EXACTLY, character for character. " +
			"Use the page images only to recover layout, positioning and visual structure the text extraction lost.\n\n# Reference text\n" +
			referenceText)}
	for i, img := range pageImages {
		blocks = append(blocks,
			llm.TextBlock(fmt.Sprintf("\n--- PAGE %d ---", span.First+i)),
			llm.PNGBlock(img),
		)
	}

	logPhase(s.deps.Log, s.Name(), phaseComposing)
	_, markup, err := s.deps.Gateway.Invoke(ctx, llm.CallParams{
		Operation:   "vision_markup_generation",
		System:      generationPrompt,
		UserContent: blocks,
		Model:       s.deps.Models.Generation,
		Temperature: 0,
	})
	if err != nil {
		return Result{}, err
	}

	logPhase(s.deps.Log, s.Name(), phaseDone)
	return Result{
		Markup:    markup,
		KeepImage: func(name string) bool { return strings.HasPrefix(name, "page_") },
	}, nil
}
