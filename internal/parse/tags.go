// Package parse extracts tag-delimited fields from free-form model output.
//
// Extraction is best-effort: a missing tag is data ("not found"),
// never a panic or a hard failure, because the upstream text is generated.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spherical/docmark/internal/domain"
)

// ExtractTag returns the content of the first <tag>...</tag> block, matching
// non-greedily across newlines. The second return is false when the tag is
// absent.
func ExtractTag(tag, text string) (string, bool) {
	pattern := regexp.MustCompile(`(?s)<` + regexp.QuoteMeta(tag) + `[^>]*>(.*?)</` + regexp.QuoteMeta(tag) + `>`)
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ExtractTagOr returns the tag content or a fallback, logging a warning on
// absence.
func ExtractTagOr(tag, text, fallback string, log zerolog.Logger) string {
	v, ok := ExtractTag(tag, text)
	if !ok {
		log.Warn().Str("tag", tag).Msg("tag not found in model response")
		return fallback
	}
	return v
}

// ParseBBox parses exactly four comma-separated floats into a normalized
// bounding box. Wrong arity or a degenerate box (x1>=x2 or y1>=y2) is an
// error; callers drop the single entry rather than aborting.
func ParseBBox(s string) (domain.BoundingBox, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return domain.BoundingBox{}, domain.MalformedOutputError(
			fmt.Sprintf("bbox %q: expected 4 coordinates, got %d", s, len(parts)))
	}
	coords := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.BoundingBox{}, domain.MalformedOutputError(
				fmt.Sprintf("bbox %q: bad coordinate %q", s, p))
		}
		coords[i] = v
	}
	box := domain.BoundingBox{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}
	if !box.Valid() {
		return domain.BoundingBox{}, domain.MalformedOutputError(
			fmt.Sprintf("bbox %q: degenerate region", s))
	}
	return box, nil
}
