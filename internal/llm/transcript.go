package llm

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// TranscriptSink receives the full exchanged conversation after every gateway
// call. Implementations must be safe under concurrent writers; batch workers
// share a single sink.
type TranscriptSink interface {
	Append(operation string, messages []Message, response string) error
}

// FileTranscript appends conversations to a diagnostic log file. A mutex
// serializes writers across batch jobs.
type FileTranscript struct {
	mu   sync.Mutex
	path string
}

// NewFileTranscript creates a file-backed transcript sink.
func NewFileTranscript(path string) *FileTranscript {
	return &FileTranscript{path: path}
}

func (t *FileTranscript) Append(operation string, messages []Message, response string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(FormatTranscript(operation, messages, response))
	return err
}

// MemoryTranscript records entries in memory for tests.
type MemoryTranscript struct {
	mu      sync.Mutex
	Entries []string
}

func (t *MemoryTranscript) Append(operation string, messages []Message, response string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Entries = append(t.Entries, FormatTranscript(operation, messages, response))
	return nil
}

// FormatTranscript renders one transcript entry. Long intermediate messages
// are truncated to their first 5 and last 3 lines; the final request/response
// pair is always kept in full. A trailing assistant message that duplicates
// the response is skipped.
func FormatTranscript(operation string, messages []Message, response string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n######################## %s ########################\n", operation)

	for i, m := range messages {
		content := m.Text()
		last := i == len(messages)-1
		secondLast := i == len(messages)-2

		if last && m.Role == RoleAssistant && strings.TrimSpace(content) == strings.TrimSpace(response) {
			continue
		}
		if !last && !secondLast {
			content = truncateLines(content)
		}
		fmt.Fprintf(&b, "[[ %s ]]\n%s\n\n", m.Role, content)
	}

	fmt.Fprintf(&b, "[[ response ]]\n%s\n########################################################\n", response)
	return b.String()
}

func truncateLines(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= 8 {
		return content
	}
	return strings.Join(lines[:5], "\n") + "\n...\n" + strings.Join(lines[len(lines)-3:], "\n")
}
