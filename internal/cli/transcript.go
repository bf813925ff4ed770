package cli

import (
	"strings"

	"github.com/fmueller/whisperjson/internal/whisper"
	"go.uber.org/zap"
)

// whisper.cpp emits this marker for each stretch of audio without speech.
const blankAudioToken = "[blank_audio]"

// isBlankTranscript reports whether the text holds nothing but whitespace and
// blank-audio markers.
func isBlankTranscript(transcript string) bool {
	remaining := strings.ReplaceAll(strings.ToLower(transcript), blankAudioToken, "")
	return strings.TrimSpace(remaining) == ""
}

func noSpeechFields(audioPath string, result whisper.Transcription) []zap.Field {
	return []zap.Field{
		zap.String("audio", audioPath),
		zap.String("language", result.Language),
		zap.Int("segments", len(result.Segments)),
		zap.String("raw_text", result.Text),
	}
}
