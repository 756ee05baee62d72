package parse

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/docmark/internal/domain"
)

var testLog = zerolog.Nop()

func TestDetections(t *testing.T) {
	text := `
<page_1>
<diagram_1>
<bbox>0.1,0.2,0.9,0.8</bbox>
<name>beam setup</name>
<description>A cantilever beam</description>
</diagram_1>
</page_1>
<page_2>
<no_diagrams/>
</page_2>
<page_3>
<diagram_1>
<bbox>0.9,0.2,0.1,0.8</bbox>
<name>bad_box</name>
<description>dropped</description>
</diagram_1>
<diagram_2>
<bbox>0.0,0.0,0.5,0.5</bbox>
</diagram_2>
</page_3>
`
	diagrams := Detections(text, []int{1, 2, 3}, testLog)
	require.Len(t, diagrams, 2)

	assert.Equal(t, 1, diagrams[0].Page)
	assert.Equal(t, "beam_setup", diagrams[0].Name, "name must be filename-safe")
	assert.Equal(t, "A cantilever beam", diagrams[0].Description)
	assert.Equal(t, domain.Unverified, diagrams[0].State)

	// Entry with degenerate bbox is dropped; the bare entry degrades to defaults.
	assert.Equal(t, 3, diagrams[1].Page)
	assert.Equal(t, "diagram_page3", diagrams[1].Name)
	assert.Equal(t, "Diagram", diagrams[1].Description)
}

func TestDetectionsMissingPages(t *testing.T) {
	diagrams := Detections("<page_1><no_diagrams/></page_1>", []int{1, 2}, testLog)
	assert.Empty(t, diagrams)
}

func TestVerifications(t *testing.T) {
	text := `
<result_ignored>
<beam_setup>
<correct/>
</beam_setup>
<shear_sketch>
<bbox>0.10,0.35,0.85,0.90</bbox>
</shear_sketch>
<broken_entry>
no verdict here
</broken_entry>
</result_ignored>
`
	verdicts := Verifications(text, []string{"beam_setup", "shear_sketch", "broken_entry", "unmentioned"}, testLog)

	require.Contains(t, verdicts, "beam_setup")
	assert.True(t, verdicts["beam_setup"].Confirmed)

	require.Contains(t, verdicts, "shear_sketch")
	require.NotNil(t, verdicts["shear_sketch"].Corrected)
	assert.InDelta(t, 0.35, verdicts["shear_sketch"].Corrected.Y1, 1e-9)

	assert.NotContains(t, verdicts, "broken_entry")
	assert.NotContains(t, verdicts, "unmentioned")
}

func TestDescriptions(t *testing.T) {
	text := `
<page_1_img_1.png>
<suggested_name>cantilever_beam</suggested_name>
<description>A beam fixed at one end</description>
</page_1_img_1.png>
<page_2_img_1.png>
<description>No name suggested</description>
</page_2_img_1.png>
`
	out := Descriptions(text, []string{"page_1_img_1.png", "page_2_img_1.png", "page_3_img_1.png"}, testLog)
	require.Len(t, out, 3)

	assert.Equal(t, "cantilever_beam", out["page_1_img_1.png"].SuggestedName)
	assert.True(t, out["page_1_img_1.png"].Found)

	assert.Empty(t, out["page_2_img_1.png"].SuggestedName)
	assert.True(t, out["page_2_img_1.png"].Found)

	// Missing block yields a placeholder so every item has an entry.
	assert.False(t, out["page_3_img_1.png"].Found)
	assert.Equal(t, "Description not available", out["page_3_img_1.png"].Description)
}
