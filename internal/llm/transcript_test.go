package llm

import (
	"fmt"
	"strings"
	"testing"
)

func longText(prefix string, lines int) string {
	parts := make([]string, lines)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s line %d", prefix, i+1)
	}
	return strings.Join(parts, "\n")
}

func TestFormatTranscriptTruncatesIntermediateMessages(t *testing.T) {
	messages := []Message{
		SystemMessage("sys"),
		UserText(longText("early", 20)),
		AssistantText("A1"),
		UserText(longText("final", 20)),
		AssistantText("final answer"),
	}
	out := FormatTranscript("op_name", messages, "final answer")

	if !strings.Contains(out, "######################## op_name ########################") {
		t.Error("missing operation header")
	}
	if !strings.Contains(out, "early line 5\n...\nearly line 18") {
		t.Error("long intermediate message not truncated to first 5 / last 3 lines")
	}
	if strings.Contains(out, "early line 5\nearly line 6") {
		t.Error("intermediate message kept in full")
	}
	// Second-to-last message (the final request) is always full.
	if !strings.Contains(out, "final line 10\nfinal line 11") {
		t.Error("final request was truncated")
	}
	// A trailing assistant message duplicating the response appears only once.
	if strings.Count(out, "final answer") != 1 {
		t.Errorf("response rendered %d times, want 1", strings.Count(out, "final answer"))
	}
}

func TestFormatTranscriptShortMessagesKeptWhole(t *testing.T) {
	messages := []Message{
		SystemMessage("sys"),
		UserText("short question"),
		AssistantText("short answer"),
	}
	out := FormatTranscript("op", messages, "short answer")

	if !strings.Contains(out, "short question") {
		t.Error("short message missing")
	}
	if strings.Contains(out, "...") {
		t.Error("short message was truncated")
	}
}

func TestFormatTranscriptImageMarker(t *testing.T) {
	messages := []Message{
		SystemMessage("sys"),
		UserContent([]ContentBlock{TextBlock("see page"), PNGBlock([]byte{1, 2, 3})}),
	}
	out := FormatTranscript("op", messages, "reply")

	if !strings.Contains(out, "[IMAGE]") {
		t.Error("image block not rendered as marker")
	}
	if strings.Contains(out, "\x01") {
		t.Error("raw image bytes leaked into transcript")
	}
}
