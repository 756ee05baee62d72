package diagram

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/docmark/internal/domain"
	"github.com/spherical/docmark/internal/llm"
)

func testPagePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// sequenceBackend replies with scripted responses in call order.
type sequenceBackend struct {
	responses []string
	requests  []llm.Request
}

func (b *sequenceBackend) Invoke(_ context.Context, req llm.Request) (string, error) {
	b.requests = append(b.requests, req)
	if len(b.requests) > len(b.responses) {
		return "", nil
	}
	return b.responses[len(b.requests)-1], nil
}

func newTestEngine(backend llm.Invoker) *Engine {
	gateway := llm.NewGateway(backend, &llm.MemoryTranscript{}, zerolog.Nop(), llm.DefaultRetryPolicy())
	return NewEngine(gateway, zerolog.Nop(),
		domain.Model{ID: "detector"}, domain.Model{ID: "describer"}, false)
}

func TestEngineThreePassRun(t *testing.T) {
	backend := &sequenceBackend{responses: []string{
		`<result>
<page_1>
<diagram_1>
<bbox>0.1,0.1,0.9,0.9</bbox>
<name>beam_setup</name>
<description>Initial guess</description>
</diagram_1>
</page_1>
</result>`,
		`<result>
<beam_setup>
<correct/>
</beam_setup>
</result>`,
		`<result>
<beam_setup.png>
<suggested_name>beam_setup</suggested_name>
<description>A cantilever beam with distributed load</description>
</beam_setup.png>
</result>`,
	}}
	engine := newTestEngine(backend)

	imagesDir := t.TempDir()
	pages := []PageImage{{Number: 1, PNG: testPagePNG(t, 200, 300)}}

	diagrams, err := engine.Run(context.Background(), pages, imagesDir)
	require.NoError(t, err)
	require.Len(t, diagrams, 1)

	d := diagrams[0]
	assert.Equal(t, 1, d.Page)
	assert.Equal(t, "beam_setup", d.Name)
	assert.Equal(t, domain.Confirmed, d.State)
	assert.Equal(t, "A cantilever beam with distributed load", d.Description)

	// The finalized crop must land in the images directory.
	_, statErr := os.Stat(filepath.Join(imagesDir, "beam_setup.png"))
	assert.NoError(t, statErr)

	require.Len(t, backend.requests, 3)
	// Verification extends the detection conversation.
	assert.Greater(t, len(backend.requests[1].Messages), len(backend.requests[0].Messages))
}

func TestEngineCorrectedBBox(t *testing.T) {
	backend := &sequenceBackend{responses: []string{
		`<result>
<page_1>
<diagram_1>
<bbox>0.1,0.1,0.5,0.5</bbox>
<name>sketch</name>
<description>Sketch</description>
</diagram_1>
</page_1>
</result>`,
		`<result>
<sketch>
<bbox>0.2,0.2,0.8,0.8</bbox>
</sketch>
</result>`,
		`<result></result>`,
	}}
	engine := newTestEngine(backend)

	diagrams, err := engine.Run(context.Background(),
		[]PageImage{{Number: 1, PNG: testPagePNG(t, 100, 100)}}, t.TempDir())
	require.NoError(t, err)
	require.Len(t, diagrams, 1)

	assert.Equal(t, domain.Corrected, diagrams[0].State)
	assert.InDelta(t, 0.2, diagrams[0].BBox.X1, 1e-9)
	assert.InDelta(t, 0.8, diagrams[0].BBox.X2, 1e-9)
	// Description pass returned nothing; the detection placeholder survives.
	assert.Equal(t, "Sketch", diagrams[0].Description)
}

func TestEngineNoDiagramsDetected(t *testing.T) {
	backend := &sequenceBackend{responses: []string{
		`<result><page_1><no_diagrams/></page_1></result>`,
	}}
	engine := newTestEngine(backend)

	diagrams, err := engine.Run(context.Background(),
		[]PageImage{{Number: 1, PNG: testPagePNG(t, 100, 100)}}, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, diagrams)
	assert.Len(t, backend.requests, 1, "no follow-on passes without detections")
}

func TestEngineEmptyPageSet(t *testing.T) {
	engine := newTestEngine(&sequenceBackend{})
	diagrams, err := engine.Run(context.Background(), nil, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, diagrams)
}

func TestCropRespectsNormalizedBox(t *testing.T) {
	page := testPagePNG(t, 200, 100)
	crop, err := Crop(page, domain.BoundingBox{X1: 0.25, Y1: 0.2, X2: 0.75, Y2: 0.8})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(crop))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestOverlayGridPreservesDimensions(t *testing.T) {
	page := testPagePNG(t, 120, 80)
	overlaid, err := OverlayGrid(page)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(overlaid))
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
}
