package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spherical/docmark/internal/chunk"
	"github.com/spherical/docmark/internal/diagram"
	"github.com/spherical/docmark/internal/domain"
	"github.com/spherical/docmark/internal/llm"
	"github.com/spherical/docmark/internal/output"
	"github.com/spherical/docmark/internal/prompt"
)

// Handwritten transcribes scanned handwriting in a multi-turn conversation:
// diagrams are located and extracted first, pages are transcribed chunk by
// chunk with each turn extending the previous one, and a final turn swaps in
// the synthesis instruction to merge all transcriptions already in history.
type Handwritten struct {
	deps Deps
}

func (s *Handwritten) Name() string { return SelectorHandwritten }

func (s *Handwritten) Process(ctx context.Context, job *Job) (Result, error) {
	transcriptionPrompt, err := prompt.Load(prompt.Transcription)
	if err != nil {
		return Result{}, err
	}
	synthesisPrompt, err := prompt.Load(prompt.Synthesis)
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
	rendered, err := renderSpan(doc, span, s.deps.Render.Scale)
	if err != nil {
		return Result{}, err
	}
	pages := make([]diagram.PageImage, len(rendered))
	for i, img := range rendered {
		page := span.First + i
		pages[i] = diagram.PageImage{Number: page, PNG: img}
		if err := os.WriteFile(job.Workspace.PagePath(page), img, 0o644); err != nil {
			s.deps.Log.Warn().Int("page", page).Err(err).Msg("could not stash rendered page")
		}
	}

	engine := diagram.NewEngine(s.deps.Gateway, s.deps.Log,
		s.deps.Models.Detection, s.deps.Models.Description, s.deps.Render.GridOverlay)
	diagrams, err := engine.Run(ctx, pages, job.Workspace.ImagesDir)
	if err != nil {
		return Result{}, err
	}

	logPhase(s.deps.Log, s.Name(), phaseInvoking)
	chunks := chunk.Plan(len(pages), chunk.DefaultMaxPerChunk)
	var history []llm.Message
	for i, c := range chunks {
		blocks := s.chunkBlocks(i, c, pages, diagrams)

		system := ""
		if history == nil {
			system = transcriptionPrompt
		}
		updated, _, err := s.deps.Gateway.Invoke(ctx, llm.CallParams{
			Operation:   "handwritten_transcription",
			System:      system,
			UserContent: blocks,
			Model:       s.deps.Models.Transcription,
			History:     history,
		})
		if err != nil {
			return Result{}, err
		}
		history = updated
		s.deps.Log.Info().Int("chunk", i+1).Int("chunks", len(chunks)).Msg("chunk transcribed")
	}

	logPhase(s.deps.Log, s.Name(), phaseComposing)
	_, markup, err := s.deps.Gateway.Invoke(ctx, llm.CallParams{
		Operation: "handwritten_synthesis",
		System:    synthesisPrompt,
		UserContent: []llm.ContentBlock{llm.TextBlock(
			"All pages are now transcribed in this conversation. Produce the final merged HTML document.")},
		Model:   s.deps.Models.Synthesis,
		History: history,
	})
	if err != nil {
		return Result{}, err
	}

	logPhase(s.deps.Log, s.Name(), phaseDone)
	return Result{
		Markup:       markup,
		Descriptions: diagramDescriptions(diagrams),
		KeepImage:    diagramFilenameFilter(diagrams),
	}, nil
}

// chunkBlocks assembles one transcription turn. The first chunk additionally
// carries the extracted diagram metadata so transcriptions can reference the
// diagrams by name.
func (s *Handwritten) chunkBlocks(index int, c chunk.Chunk, pages []diagram.PageImage, diagrams []domain.Diagram) []llm.ContentBlock {
	header := fmt.Sprintf("Transcribe pages %d through %d.", c.First(), c.Last())
	if index == 0 && len(diagrams) > 0 {
		header += "\n\nThe following diagrams were extracted from the document. Reference them by name where they appear:\n" +
			diagramContext(diagrams)
	}

	byPage := make(map[int][]byte, len(pages))
	for _, p := range pages {
		byPage[p.Number] = p.PNG
	}

	blocks := []llm.ContentBlock{llm.TextBlock(header)}
	for _, page := range c.Pages {
		blocks = append(blocks,
			llm.TextBlock(fmt.Sprintf("\n--- PAGE %d ---", page)),
			llm.PNGBlock(byPage[page]),
		)
	}
	return blocks
}

func diagramContext(diagrams []domain.Diagram) string {
	type entry struct {
		Name        string `json:"name"`
		Page        int    `json:"page"`
		Description string `json:"description"`
		Path        string `json:"path"`
	}
	entries := make([]entry, len(diagrams))
	for i, d := range diagrams {
		entries[i] = entry{
			Name:        d.Name,
			Page:        d.Page,
			Description: d.Description,
			Path:        "images/" + d.Filename(),
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func diagramDescriptions(diagrams []domain.Diagram) map[string]output.DescriptionEntry {
	if len(diagrams) == 0 {
		return nil
	}
	out := make(map[string]output.DescriptionEntry, len(diagrams))
	for _, d := range diagrams {
		out[d.Filename()] = output.DescriptionEntry{SuggestedName: d.Name, Description: d.Description}
	}
	return out
}

func diagramFilenameFilter(diagrams []domain.Diagram) func(string) bool {
	keep := make(map[string]bool, len(diagrams))
	for _, d := range diagrams {
		keep[d.Filename()] = true
	}
	return func(name string) bool { return keep[name] }
}
