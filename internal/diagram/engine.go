// Package diagram locates, verifies and describes diagrams inside rendered
// page images through a three-pass conversation with the vision backend.
package diagram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/spherical/docmark/internal/domain"
	"github.com/spherical/docmark/internal/llm"
	"github.com/spherical/docmark/internal/parse"
	"github.com/spherical/docmark/internal/prompt"
)

// PageImage is one rendered page handed to the engine.
type PageImage struct {
	Number int // 1-based
	PNG    []byte
}

// Engine runs the detect-crop-verify-describe pipeline. A run that finds
// nothing is a valid empty result, not an error; downstream consumers must
// tolerate zero diagrams.
type Engine struct {
	gateway          *llm.Gateway
	log              zerolog.Logger
	detectionModel   domain.Model
	descriptionModel domain.Model
	gridOverlay      bool
}

// NewEngine constructs a diagram engine. With gridOverlay set, detection
// pages carry a 10%-increment coordinate grid.
func NewEngine(gateway *llm.Gateway, log zerolog.Logger, detectionModel, descriptionModel domain.Model, gridOverlay bool) *Engine {
	return &Engine{
		gateway:          gateway,
		log:              log,
		detectionModel:   detectionModel,
		descriptionModel: descriptionModel,
		gridOverlay:      gridOverlay,
	}
}

// Run executes all three passes and writes the final cropped diagrams into
// imagesDir. Backend failures inside a pass degrade that pass: detection
// failure yields zero diagrams, verification failure leaves records
// unverified, description failure keeps placeholder text.
func (e *Engine) Run(ctx context.Context, pages []PageImage, imagesDir string) ([]domain.Diagram, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	// Prompt assets are resolved up front, before any model call.
	detectionPrompt, err := prompt.Load(prompt.DiagramDetection)
	if err != nil {
		return nil, err
	}
	verificationPrompt, err := prompt.Load(prompt.DiagramVerification)
	if err != nil {
		return nil, err
	}
	descriptionPrompt, err := prompt.Load(prompt.ImageDescription)
	if err != nil {
		return nil, err
	}

	byPage := make(map[int][]byte, len(pages))
	for _, p := range pages {
		byPage[p.Number] = p.PNG
	}

	diagrams, history := e.detect(ctx, detectionPrompt, pages)
	if len(diagrams) == 0 {
		e.log.Info().Msg("no diagrams detected")
		return nil, nil
	}

	diagrams = e.verify(ctx, verificationPrompt, diagrams, byPage, history)

	if err := e.extractAndDescribe(ctx, descriptionPrompt, diagrams, byPage, imagesDir); err != nil {
		return nil, err
	}
	return diagrams, nil
}

func (e *Engine) detect(ctx context.Context, systemPrompt string, pages []PageImage) ([]domain.Diagram, []llm.Message) {
	blocks := []llm.ContentBlock{llm.TextBlock(fmt.Sprintf(
		"Analyze these %d pages and identify the main diagram on each page, following the response format from your instructions.", len(pages)))}

	pageNums := make([]int, 0, len(pages))
	for _, p := range pages {
		pageNums = append(pageNums, p.Number)

		img := p.PNG
		if e.gridOverlay {
			overlaid, err := OverlayGrid(p.PNG)
			if err != nil {
				e.log.Warn().Int("page", p.Number).Err(err).Msg("grid overlay failed, sending raw page")
			} else {
				img = overlaid
			}
		}
		blocks = append(blocks,
			llm.TextBlock(fmt.Sprintf("\n--- PAGE %d ---", p.Number)),
			llm.PNGBlock(img),
		)
	}

	history, response, err := e.gateway.Invoke(ctx, llm.CallParams{
		Operation:   "diagram_detection",
		System:      systemPrompt,
		UserContent: blocks,
		Model:       e.detectionModel,
	})
	if err != nil {
		e.log.Error().Err(err).Msg("diagram detection failed, proceeding without diagrams")
		return nil, nil
	}

	result, ok := parse.ExtractTag("result", response)
	if !ok {
		e.log.Warn().Msg("detection response carries no result block")
		return nil, nil
	}

	diagrams := parse.Detections(result, pageNums, e.log)
	e.log.Info().Int("count", len(diagrams)).Int("pages", len(pages)).Msg("diagrams detected")
	return diagrams, history
}

// verify runs the single self-correction round: all crops are presented in a
// follow-on turn of the detection conversation, and the model confirms or
// corrects each bounding box. Diagrams the model does not mention stay
// unverified with their original box.
func (e *Engine) verify(ctx context.Context, systemPrompt string, diagrams []domain.Diagram, byPage map[int][]byte, history []llm.Message) []domain.Diagram {
	blocks := []llm.ContentBlock{llm.TextBlock(
		"Here is the cropped region for each diagram you located. Confirm each crop or supply a corrected bounding box against the original page.")}

	names := make([]string, 0, len(diagrams))
	for _, d := range diagrams {
		crop, err := Crop(byPage[d.Page], d.BBox)
		if err != nil {
			e.log.Warn().Str("diagram", d.Name).Err(err).Msg("crop failed, skipping verification for entry")
			continue
		}
		names = append(names, d.Name)
		blocks = append(blocks,
			llm.TextBlock(fmt.Sprintf("\n[Diagram %s, page %d]", d.Name, d.Page)),
			llm.PNGBlock(crop),
		)
	}
	if len(names) == 0 {
		return diagrams
	}

	_, response, err := e.gateway.Invoke(ctx, llm.CallParams{
		Operation:   "diagram_verification",
		System:      systemPrompt,
		UserContent: blocks,
		Model:       e.detectionModel,
		History:     history,
	})
	if err != nil {
		e.log.Error().Err(err).Msg("verification turn failed, keeping detections unverified")
		return diagrams
	}

	result, ok := parse.ExtractTag("result", response)
	if !ok {
		e.log.Warn().Msg("verification response carries no result block")
		return diagrams
	}

	verdicts := parse.Verifications(result, names, e.log)
	confirmed, corrected := 0, 0
	for i := range diagrams {
		v, ok := verdicts[diagrams[i].Name]
		if !ok {
			continue
		}
		if v.Confirmed {
			diagrams[i].State = domain.Confirmed
			confirmed++
		} else if v.Corrected != nil {
			diagrams[i].BBox = *v.Corrected
			diagrams[i].State = domain.Corrected
			corrected++
		}
	}
	e.log.Info().Int("confirmed", confirmed).Int("corrected", corrected).Msg("verification round complete")
	return diagrams
}

// extractAndDescribe crops the finalized boxes into standalone images and
// issues one batched description call, pairing each crop with its full page
// for context. Returned descriptions replace the detection placeholders.
func (e *Engine) extractAndDescribe(ctx context.Context, systemPrompt string, diagrams []domain.Diagram, byPage map[int][]byte, imagesDir string) error {
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return err
	}

	type extracted struct {
		index int
		crop  []byte
	}
	var crops []extracted
	for i, d := range diagrams {
		crop, err := Crop(byPage[d.Page], d.BBox)
		if err != nil {
			e.log.Warn().Str("diagram", d.Name).Err(err).Msg("final crop failed, diagram skipped")
			continue
		}
		if err := os.WriteFile(filepath.Join(imagesDir, d.Filename()), crop, 0o644); err != nil {
			return fmt.Errorf("write diagram %s: %w", d.Name, err)
		}
		crops = append(crops, extracted{index: i, crop: crop})
	}
	if len(crops) == 0 {
		return nil
	}

	blocks := []llm.ContentBlock{llm.TextBlock(fmt.Sprintf(
		"Analyze these %d diagrams. Each is preceded by its originating full page for context; describe the cropped diagram, not the page.", len(crops)))}
	filenames := make([]string, 0, len(crops))
	for _, c := range crops {
		d := diagrams[c.index]
		filenames = append(filenames, d.Filename())
		blocks = append(blocks,
			llm.TextBlock(fmt.Sprintf("\n[Full page context for %s]", d.Filename())),
			llm.PNGBlock(byPage[d.Page]),
			llm.TextBlock(fmt.Sprintf("[Diagram: %s]", d.Filename())),
			llm.PNGBlock(c.crop),
		)
	}

	_, response, err := e.gateway.Invoke(ctx, llm.CallParams{
		Operation:   "diagram_description",
		System:      systemPrompt,
		UserContent: blocks,
		Model:       e.descriptionModel,
	})
	if err != nil {
		e.log.Error().Err(err).Msg("description call failed, keeping placeholder descriptions")
		return nil
	}

	result, ok := parse.ExtractTag("result", response)
	if !ok {
		e.log.Warn().Msg("description response carries no result block")
		return nil
	}

	described := parse.Descriptions(result, filenames, e.log)
	for _, c := range crops {
		d := &diagrams[c.index]
		if entry, ok := described[d.Filename()]; ok && entry.Found {
			d.Description = entry.Description
		}
	}
	return nil
}
