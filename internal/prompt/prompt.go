// Package prompt holds the embedded instruction templates sent as system
// prompts. A template that cannot be resolved is reported before any model
// call is made.
package prompt

import (
	"embed"

	"github.com/spherical/docmark/internal/domain"
)

//go:embed templates/*.md
var templates embed.FS

// Asset names the instruction templates.
type Asset string

const (
	DiagramDetection    Asset = "diagram_detection"
	DiagramVerification Asset = "diagram_verification"
	ImageDescription    Asset = "image_description"
	MarkupGeneration    Asset = "markup_generation"
	Transcription       Asset = "handwritten_transcription"
	Synthesis           Asset = "handwritten_synthesis"
	SolutionMerge       Asset = "solution_merge"
)

// Load returns the template text or a MissingPromptAsset error.
func Load(name Asset) (string, error) {
	data, err := templates.ReadFile("templates/" + string(name) + ".md")
	if err != nil {
		return "", domain.MissingPromptAssetError(string(name))
	}
	return string(data), nil
}
