package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// TranscriptWriter writes each generation request and its outcome to text
// files in a directory. A nil writer does nothing.
type TranscriptWriter struct {
	dir string
}

// NewTranscriptWriter creates dir if needed. An empty dir returns a nil writer.
func NewTranscriptWriter(dir string) (*TranscriptWriter, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript directory %s: %w", dir, err)
	}
	return &TranscriptWriter{dir: dir}, nil
}

// WriteRequest records the prompt and returns the file prefix shared by the
// matching response or error file.
func (w *TranscriptWriter) WriteRequest(id uuid.UUID, model, purpose, systemMessage, prompt string) string {
	if w == nil {
		return ""
	}
	prefix := fmt.Sprintf("%s_%s_%s", time.Now().Format("2006-01-02_15-04-05.000"), purpose, id.String())
	content := fmt.Sprintf(`================================================================================
TIMESTAMP: %s
MODEL: %s
PURPOSE: %s
CALL_ID: %s
TYPE: REQUEST
================================================================================

=== SYSTEM MESSAGE ===
%s

=== PROMPT ===
%s
`, time.Now().Format(time.RFC3339), model, purpose, id.String(), systemMessage, prompt)

	w.write(prefix+"_request.txt", content)
	return prefix
}

// WriteResponse records a completion.
func (w *TranscriptWriter) WriteResponse(prefix, response string, duration time.Duration) {
	if w == nil || prefix == "" {
		return
	}
	w.write(prefix+"_response.txt", fmt.Sprintf("DURATION_MS: %d\nTYPE: RESPONSE\n\n%s\n", duration.Milliseconds(), response))
}

// WriteError records a failed call.
func (w *TranscriptWriter) WriteError(prefix string, err error, duration time.Duration) {
	if w == nil || prefix == "" {
		return
	}
	w.write(prefix+"_error.txt", fmt.Sprintf("DURATION_MS: %d\nTYPE: ERROR\n\n%v\n", duration.Milliseconds(), err))
}

func (w *TranscriptWriter) write(name, content string) {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: failed to write LLM transcript %s: %v\n", path, err)
	}
}
