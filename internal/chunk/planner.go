// Package chunk partitions a page list into bounded, evenly sized chunks for
// multi-turn transcription.
package chunk

// DefaultMaxPerChunk bounds how many page images go into one model turn.
const DefaultMaxPerChunk = 8

// Chunk is an ordered, contiguous group of 1-indexed page numbers.
type Chunk struct {
	Pages []int
}

// First returns the first page number of the chunk.
func (c Chunk) First() int { return c.Pages[0] }

// Last returns the last page number of the chunk.
func (c Chunk) Last() int { return c.Pages[len(c.Pages)-1] }

// Plan partitions pages 1..totalPages into contiguous chunks of at most
// maxPerChunk pages, distributed so that any two chunk sizes differ by at
// most one. Page order is preserved and every page appears exactly once.
func Plan(totalPages, maxPerChunk int) []Chunk {
	if totalPages <= 0 {
		return nil
	}
	if maxPerChunk <= 0 {
		maxPerChunk = DefaultMaxPerChunk
	}

	if totalPages <= maxPerChunk {
		return []Chunk{{Pages: pageRange(1, totalPages)}}
	}

	numChunks := (totalPages + maxPerChunk - 1) / maxPerChunk
	base := totalPages / numChunks
	remainder := totalPages % numChunks

	chunks := make([]Chunk, 0, numChunks)
	start := 1
	for i := 0; i < numChunks; i++ {
		size := base
		if i < remainder {
			size++
		}
		chunks = append(chunks, Chunk{Pages: pageRange(start, start+size-1)})
		start += size
	}
	return chunks
}

func pageRange(first, last int) []int {
	pages := make([]int, 0, last-first+1)
	for p := first; p <= last; p++ {
		pages = append(pages, p)
	}
	return pages
}
