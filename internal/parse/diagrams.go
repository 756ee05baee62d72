package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spherical/docmark/internal/domain"
)

var diagramBlockPattern = regexp.MustCompile(`(?s)<diagram_(\d+)>(.*?)</diagram_\d+>`)

// Detections extracts diagram records from a detection response. The
// response carries one <page_N> block per page; each block holds zero or
// more <diagram_K> entries or a <no_diagrams/> sentinel. Entries with a
// malformed bounding box are dropped with a warning. Missing inner tags
// degrade to defaults.
func Detections(text string, pages []int, log zerolog.Logger) []domain.Diagram {
	var diagrams []domain.Diagram

	for _, page := range pages {
		block, ok := ExtractTag(fmt.Sprintf("page_%d", page), text)
		if !ok {
			continue
		}
		if HasNoItemsMarker(block) {
			log.Debug().Int("page", page).Msg("no diagrams on page")
			continue
		}

		for _, m := range diagramBlockPattern.FindAllStringSubmatch(block, -1) {
			content := m[2]

			bboxText, ok := ExtractTag("bbox", content)
			if !ok {
				log.Warn().Int("page", page).Msg("diagram entry missing bbox, dropped")
				continue
			}
			box, err := ParseBBox(bboxText)
			if err != nil {
				log.Warn().Int("page", page).Err(err).Msg("diagram entry dropped")
				continue
			}

			name, ok := ExtractTag("name", content)
			if !ok || name == "" {
				name = fmt.Sprintf("diagram_page%d", page)
			}
			description, ok := ExtractTag("description", content)
			if !ok || description == "" {
				description = "Diagram"
			}

			diagrams = append(diagrams, domain.Diagram{
				Page:        page,
				BBox:        box,
				Name:        sanitizeName(name),
				Description: description,
				State:       domain.Unverified,
			})
		}
	}

	return diagrams
}

// HasNoItemsMarker reports the sentinel that short-circuits extraction for
// a page block.
func HasNoItemsMarker(block string) bool {
	return strings.Contains(block, "<no_diagrams/>") || strings.Contains(block, "<no_diagrams />")
}

// Verdict is the outcome of the verification pass for one diagram.
type Verdict struct {
	Confirmed bool
	// Corrected is set when the model supplied a replacement bounding box.
	Corrected *domain.BoundingBox
}

// Verifications extracts per-diagram verdicts from a verification response.
// Each diagram is addressed by a block tagged with its name, containing
// either a <correct/> marker or a replacement <bbox>. Diagrams not mentioned
// in the response are absent from the result map and stay unverified.
func Verifications(text string, names []string, log zerolog.Logger) map[string]Verdict {
	verdicts := make(map[string]Verdict)

	for _, name := range names {
		block, ok := ExtractTag(name, text)
		if !ok {
			continue
		}
		if strings.Contains(block, "<correct/>") || strings.Contains(block, "<correct />") {
			verdicts[name] = Verdict{Confirmed: true}
			continue
		}
		bboxText, ok := ExtractTag("bbox", block)
		if !ok {
			log.Warn().Str("diagram", name).Msg("verification block has neither verdict nor bbox")
			continue
		}
		box, err := ParseBBox(bboxText)
		if err != nil {
			log.Warn().Str("diagram", name).Err(err).Msg("corrected bbox dropped")
			continue
		}
		verdicts[name] = Verdict{Corrected: &box}
	}

	return verdicts
}

// ItemDescription holds per-image fields from a batched description call.
type ItemDescription struct {
	SuggestedName string
	Description   string
	// Found is false when the item's block was absent and the entry is a
	// placeholder.
	Found bool
}

// Descriptions extracts one description entry per named item (typically an
// image filename). Missing inner tags degrade to an empty name and a
// placeholder description; a missing item block yields the placeholder entry
// so every requested item has a result.
func Descriptions(text string, items []string, log zerolog.Logger) map[string]ItemDescription {
	out := make(map[string]ItemDescription, len(items))

	for _, item := range items {
		block, ok := ExtractTag(item, text)
		if !ok {
			log.Warn().Str("item", item).Msg("no description found for item")
			out[item] = ItemDescription{Description: "Description not available"}
			continue
		}
		name, _ := ExtractTag("suggested_name", block)
		desc, ok := ExtractTag("description", block)
		if !ok || desc == "" {
			desc = "No description available"
		}
		out[item] = ItemDescription{SuggestedName: name, Description: desc, Found: true}
	}

	return out
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// sanitizeName makes a model-suggested diagram name safe as a filename stem.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".png")
	return unsafeNameChars.ReplaceAllString(name, "_")
}
