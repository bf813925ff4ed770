package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fmueller/whisperjson/internal/whisper"
)

type transcriptionOutput struct {
	Text     string            `json:"text"`
	Language *string           `json:"language"`
	Segments []whisper.Segment `json:"segments"`
}

type errorOutput struct {
	Error string `json:"error"`
}

func newTranscriptionOutput(result whisper.Transcription) transcriptionOutput {
	out := transcriptionOutput{
		Text:     strings.TrimSpace(result.Text),
		Segments: result.Segments,
	}
	if result.Language != "" {
		language := result.Language
		out.Language = &language
	}
	if out.Segments == nil {
		out.Segments = []whisper.Segment{}
	}
	return out
}

// writeJSON writes v as one JSON document without a trailing newline.
// Non-ASCII text and HTML characters are written literally.
func writeJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}
