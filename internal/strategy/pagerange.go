package strategy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spherical/docmark/internal/domain"
)

// Span is an inclusive 1-based page range.
type Span struct {
	First int
	Last  int
}

func (s Span) Count() int { return s.Last - s.First + 1 }

// Pages lists the span's page numbers in order.
func (s Span) Pages() []int {
	pages := make([]int, 0, s.Count())
	for p := s.First; p <= s.Last; p++ {
		pages = append(pages, p)
	}
	return pages
}

// ParsePageRange parses the literal grammar "<int>", "<int>-<int>" or
// "<int>-end" against a document of totalPages pages. The token "end"
// resolves to the last page. Violations fail with InvalidPageRange before
// any network activity.
func ParsePageRange(expr string, totalPages int) (Span, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Span{}, domain.InvalidPageRangeError("empty page range")
	}

	var first, last int
	if before, after, found := strings.Cut(expr, "-"); found {
		f, err := strconv.Atoi(before)
		if err != nil {
			return Span{}, domain.InvalidPageRangeError(fmt.Sprintf("bad range start %q", before))
		}
		first = f
		if after == "end" {
			last = totalPages
		} else {
			l, err := strconv.Atoi(after)
			if err != nil {
				return Span{}, domain.InvalidPageRangeError(fmt.Sprintf("bad range end %q", after))
			}
			last = l
		}
	} else {
		p, err := strconv.Atoi(expr)
		if err != nil {
			return Span{}, domain.InvalidPageRangeError(fmt.Sprintf("bad page number %q", expr))
		}
		first, last = p, p
	}

	if first < 1 {
		return Span{}, domain.InvalidPageRangeError(fmt.Sprintf("range %q starts before page 1", expr))
	}
	if last < first {
		return Span{}, domain.InvalidPageRangeError(fmt.Sprintf("range %q ends before it starts", expr))
	}
	if last > totalPages {
		return Span{}, domain.InvalidPageRangeError(
			fmt.Sprintf("range %q exceeds document length %d", expr, totalPages))
	}
	return Span{First: first, Last: last}, nil
}

var pageMarkerPattern = regexp.MustCompile(`(?m)^## Page (\d+)$`)

// FilterPageMarkers selects the sections of accumulated extracted text that
// belong to the span, using the "## Page N" boundary markers emitted by the
// document access layer.
func FilterPageMarkers(text string, span Span) string {
	markers := pageMarkerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(markers) == 0 {
		return text
	}

	var out strings.Builder
	for i, m := range markers {
		page, _ := strconv.Atoi(text[m[2]:m[3]])
		if page < span.First || page > span.Last {
			continue
		}
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		out.WriteString(text[m[0]:end])
	}
	return out.String()
}
