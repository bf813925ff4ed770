package whisper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrEngineUnavailable reports that no speech recognition engine could be
// acquired: the executable, the in-process library or the sidecar is missing.
var ErrEngineUnavailable = errors.New("speech recognition engine unavailable")

const (
	EngineWhisperCLI = "whisper-cli"
	EngineLibrary    = "library"
	EngineSidecar    = "sidecar"
)

type TranscriptionRequest struct {
	AudioPath string
	Model     string
	// Language is a language code; empty means auto-detect.
	Language string
	// FP16 asks the engine for half-precision inference.
	FP16 bool
}

type Segment struct {
	ID     int     `json:"id"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Text   string  `json:"text"`
	Tokens []int   `json:"tokens,omitempty"`

	// Decoder statistics, present only when the engine reports them.
	Temperature      *float64 `json:"temperature,omitempty"`
	AvgLogprob       *float64 `json:"avg_logprob,omitempty"`
	CompressionRatio *float64 `json:"compression_ratio,omitempty"`
	NoSpeechProb     *float64 `json:"no_speech_prob,omitempty"`
}

// Transcription is the raw engine result. Text is left exactly as the
// engine produced it.
type Transcription struct {
	Text     string
	Language string
	Segments []Segment
}

type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (Transcription, error)
}

type Options struct {
	Name           string
	WhisperPath    string
	ModelDir       string
	SidecarURL     string
	SidecarTimeout time.Duration
	Threads        int
	Logger         *zap.Logger
}

func EngineNames() []string {
	return []string{EngineWhisperCLI, EngineLibrary, EngineSidecar}
}

func NewEngine(ctx context.Context, opts Options) (Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	switch opts.Name {
	case "", EngineWhisperCLI:
		engine, err := NewBundledEngine(opts)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case EngineLibrary:
		return NewLibraryEngine(opts)
	case EngineSidecar:
		engine, err := NewSidecarEngine(ctx, opts)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q (known engines: %s)", ErrEngineUnavailable, opts.Name, strings.Join(EngineNames(), ", "))
	}
}

func languageOrAuto(language string) string {
	lang := strings.TrimSpace(language)
	if lang == "" {
		return "auto"
	}
	return lang
}
