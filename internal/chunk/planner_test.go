package chunk

import "testing"

func TestPlanSinglePageFitsOneChunk(t *testing.T) {
	chunks := Plan(5, 8)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].First() != 1 || chunks[0].Last() != 5 {
		t.Errorf("chunk covers %d-%d, want 1-5", chunks[0].First(), chunks[0].Last())
	}
}

func TestPlanDistribution(t *testing.T) {
	tests := []struct {
		total int
		sizes []int
	}{
		{8, []int{8}},
		{9, []int{5, 4}},
		{10, []int{5, 5}},
		{16, []int{8, 8}},
		{17, []int{6, 6, 5}},
		{24, []int{8, 8, 8}},
		{25, []int{7, 6, 6, 6}},
	}
	for _, tt := range tests {
		chunks := Plan(tt.total, 8)
		if len(chunks) != len(tt.sizes) {
			t.Errorf("Plan(%d): got %d chunks, want %d", tt.total, len(chunks), len(tt.sizes))
			continue
		}
		for i, c := range chunks {
			if len(c.Pages) != tt.sizes[i] {
				t.Errorf("Plan(%d) chunk %d: size %d, want %d", tt.total, i, len(c.Pages), tt.sizes[i])
			}
		}
	}
}

// Every page count must yield an exact partition of 1..P with bounded,
// near-equal chunk sizes.
func TestPlanPartitionProperties(t *testing.T) {
	const max = 8
	for total := 1; total <= 200; total++ {
		chunks := Plan(total, max)

		next := 1
		minSize, maxSize := total+1, 0
		for _, c := range chunks {
			if len(c.Pages) == 0 {
				t.Fatalf("total=%d: empty chunk", total)
			}
			if len(c.Pages) > max {
				t.Fatalf("total=%d: chunk size %d exceeds %d", total, len(c.Pages), max)
			}
			for _, p := range c.Pages {
				if p != next {
					t.Fatalf("total=%d: expected page %d, got %d", total, next, p)
				}
				next++
			}
			if len(c.Pages) < minSize {
				minSize = len(c.Pages)
			}
			if len(c.Pages) > maxSize {
				maxSize = len(c.Pages)
			}
		}
		if next != total+1 {
			t.Fatalf("total=%d: partition ends at %d", total, next-1)
		}
		if maxSize-minSize > 1 {
			t.Fatalf("total=%d: chunk sizes differ by %d", total, maxSize-minSize)
		}
	}
}

func TestPlanZeroPages(t *testing.T) {
	if chunks := Plan(0, 8); chunks != nil {
		t.Errorf("expected nil, got %v", chunks)
	}
}
