package strategy

import (
	"testing"

	"github.com/spherical/docmark/internal/domain"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		spec  string
		total int
		first int
		last  int
	}{
		{"5-end", 20, 5, 20},
		{"3", 20, 3, 3},
		{"1-4", 10, 1, 4},
		{"1-end", 1, 1, 1},
		{" 2-6 ", 10, 2, 6},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			span, err := ParsePageRange(tt.spec, tt.total)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if span.First != tt.first || span.Last != tt.last {
				t.Errorf("got (%d,%d), want (%d,%d)", span.First, span.Last, tt.first, tt.last)
			}
		})
	}
}

func TestParsePageRangeRejects(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		total int
	}{
		{"starts before page 1", "0-5", 20},
		{"ends before start", "5-2", 20},
		{"zero page", "0", 20},
		{"beyond document", "5-30", 20},
		{"garbage", "abc", 20},
		{"garbage end", "3-xyz", 20},
		{"empty", "", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePageRange(tt.spec, tt.total)
			if err == nil {
				t.Fatalf("ParsePageRange(%q): expected error", tt.spec)
			}
			if !domain.IsKind(err, domain.KindInvalidPageRange) {
				t.Errorf("error kind = %v, want invalid page range", err)
			}
		})
	}
}

func TestFilterPageMarkers(t *testing.T) {
	text := "\n## Page 1\n\nfirst\n\n## Page 2\n\nsecond\n\n## Page 3\n\nthird\n"

	got := FilterPageMarkers(text, Span{First: 2, Last: 2})
	if got != "## Page 2\n\nsecond\n\n" {
		t.Errorf("got %q", got)
	}

	all := FilterPageMarkers(text, Span{First: 1, Last: 3})
	if all != "## Page 1\n\nfirst\n\n## Page 2\n\nsecond\n\n## Page 3\n\nthird\n" {
		t.Errorf("got %q", all)
	}
}

func TestFilterPageMarkersNoMarkers(t *testing.T) {
	text := "plain text without markers"
	if got := FilterPageMarkers(text, Span{First: 1, Last: 1}); got != text {
		t.Errorf("got %q, want input unchanged", got)
	}
}

func TestSpanPages(t *testing.T) {
	span := Span{First: 3, Last: 5}
	pages := span.Pages()
	if len(pages) != 3 || pages[0] != 3 || pages[2] != 5 {
		t.Errorf("got %v", pages)
	}
}
