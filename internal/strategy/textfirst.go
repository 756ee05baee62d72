package strategy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/docmark/internal/llm"
	"github.com/spherical/docmark/internal/output"
	"github.com/spherical/docmark/internal/parse"
	"github.com/spherical/docmark/internal/prompt"
)

// TextFirst extracts the document's text and embedded images, describes the
// images in one batched call, then generates the markup from text plus
// descriptions in a single low-temperature call.
type TextFirst struct {
	deps Deps
}

func (s *TextFirst) Name() string { return SelectorTextBased }

type extractedImage struct {
	filename  string
	data      []byte
	mediaType string
}

func (s *TextFirst) Process(ctx context.Context, job *Job) (Result, error) {
	descriptionPrompt, err := prompt.Load(prompt.ImageDescription)
	if err != nil {
		return Result{}, err
	}
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

	var text strings.Builder
	var images []extractedImage
	for page := span.First; page <= span.Last; page++ {
		pageText, err := doc.ExtractText(page)
		if err != nil {
			return Result{}, err
		}
		text.WriteString(pageText)

		embedded, err := doc.ExtractEmbeddedImages(page)
		if err != nil {
			s.deps.Log.Warn().Int("page", page).Err(err).Msg("embedded image extraction failed, page continues text-only")
			continue
		}
		for i, img := range embedded {
			name := fmt.Sprintf("page_%d_img_%d.%s", page, i+1, img.Format)
			if err := os.WriteFile(filepath.Join(job.Workspace.ImagesDir, name), img.Data, 0o644); err != nil {
				return Result{}, fmt.Errorf("write extracted image: %w", err)
			}
			images = append(images, extractedImage{
				filename:  name,
				data:      img.Data,
				mediaType: mediaTypeFor(img.Format),
			})
		}
	}
	s.deps.Log.Info().Int("pages", span.Count()).Int("images", len(images)).Msg("extraction complete")

	logPhase(s.deps.Log, s.Name(), phaseInvoking)
	descriptions := s.describeImages(ctx, descriptionPrompt, images)

	logPhase(s.deps.Log, s.Name(), phaseComposing)
	blocks := []llm.ContentBlock{llm.TextBlock(buildGenerationRequest(text.String(), images, descriptions))}
	_, markup, err := s.deps.Gateway.Invoke(ctx, llm.CallParams{
		Operation:   "markup_generation",
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
		Markup:       markup,
		Descriptions: descriptions,
		KeepImage:    func(name string) bool { return strings.HasPrefix(name, "page_") },
	}, nil
}

// describeImages issues the batched description call. Failures degrade to an
// empty description set so the generation call still runs on text alone.
func (s *TextFirst) describeImages(ctx context.Context, systemPrompt string, images []extractedImage) map[string]output.DescriptionEntry {
	if len(images) == 0 {
		return nil
	}

	blocks := []llm.ContentBlock{llm.TextBlock(fmt.Sprintf(
		"Analyze these %d images extracted from the document, following the response format from your instructions.", len(images)))}
	filenames := make([]string, 0, len(images))
	for _, img := range images {
		filenames = append(filenames, img.filename)
		blocks = append(blocks,
			llm.TextBlock(fmt.Sprintf("\n[Image: %s]", img.filename)),
			llm.ImageBlock(img.data, img.mediaType),
		)
	}

	_, response, err := s.deps.Gateway.Invoke(ctx, llm.CallParams{
		Operation:   "image_description",
		System:      systemPrompt,
		UserContent: blocks,
		Model:       s.deps.Models.Description,
	})
	if err != nil {
		s.deps.Log.Error().Err(err).Msg("image description failed, generating from text only")
		return nil
	}

	result, ok := parse.ExtractTag("result", response)
	if !ok {
		s.deps.Log.Warn().Msg("description response carries no result block")
		return nil
	}

	parsed := parse.Descriptions(result, filenames, s.deps.Log)
	descriptions := make(map[string]output.DescriptionEntry, len(parsed))
	for name, d := range parsed {
		descriptions[name] = output.DescriptionEntry{SuggestedName: d.SuggestedName, Description: d.Description}
	}
	return descriptions
}

func buildGenerationRequest(text string, images []extractedImage, descriptions map[string]output.DescriptionEntry) string {
	var b strings.Builder
	b.WriteString("Convert the following document content to HTML.\n\n# Document text\n")
	b.WriteString(text)

	if len(images) > 0 {
		b.WriteString("\n\n# Available images\nReference these with their relative paths:\n")
		for _, img := range images {
			desc := "No description available"
			if d, ok := descriptions[img.filename]; ok {
				desc = d.Description
			}
			fmt.Fprintf(&b, "- images/%s: %s\n", img.filename, desc)
		}
	}
	return b.String()
}
