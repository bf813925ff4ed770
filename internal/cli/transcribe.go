package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fmueller/whisperjson/internal/config"
	"github.com/fmueller/whisperjson/internal/logging"
	"github.com/fmueller/whisperjson/internal/whisper"
	"go.uber.org/zap"
)

func (a *appState) run(ctx context.Context) error {
	configFn := a.configFn
	if configFn == nil {
		configFn = config.Load
	}

	engineFn := a.engineFn
	if engineFn == nil {
		engineFn = a.newEngine
	}

	cfg, err := configFn()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogFormat == config.LogFormatJSON})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger
	defer func() { _ = logger.Sync() }()

	engine, err := engineFn(ctx, cfg)
	if err != nil {
		return err
	}

	req := whisper.TranscriptionRequest{
		AudioPath: a.audioPath,
		Model:     a.model,
		Language:  normalizeLanguage(a.language),
		FP16:      false,
	}

	result, err := a.transcribe(ctx, engine, req)
	if err != nil {
		if ctx.Err() != nil {
			cause := context.Cause(ctx)
			a.log().Warn("transcription interrupted", zap.Error(cause))
			return &ExitError{Code: interruptExitCode(ctx), Err: cause}
		}
		if writeErr := writeJSON(a.outWriter(), errorOutput{Error: err.Error()}); writeErr != nil {
			return fmt.Errorf("write error result: %w", errors.Join(err, writeErr))
		}
		return &ExitError{Code: 1, Err: err}
	}

	if isBlankTranscript(result.Text) {
		a.log().Warn("no speech detected in audio", noSpeechFields(req.AudioPath, result)...)
	}

	if err := writeJSON(a.outWriter(), newTranscriptionOutput(result)); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// transcribe is the error boundary around the engine: panics inside the
// engine surface as ordinary errors.
func (a *appState) transcribe(ctx context.Context, engine whisper.Engine, req whisper.TranscriptionRequest) (result whisper.Transcription, err error) {
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	defer stopSpinner()

	defer func() {
		if r := recover(); r != nil {
			a.log().Error("engine panicked", zap.Any("panic", r))
			err = fmt.Errorf("%v", r)
		}
	}()

	a.log().Info("transcribing...", zap.String("audio", req.AudioPath), zap.String("model", req.Model), zap.String("language", req.Language))
	started := time.Now()

	result, err = engine.Transcribe(ctx, req)
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return whisper.Transcription{}, err
	}

	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)), zap.String("language", result.Language), zap.Int("segments", len(result.Segments)))
	return result, nil
}

// normalizeLanguage maps the --language flag to an engine language code;
// empty and "auto" both mean auto-detect.
func normalizeLanguage(input string) string {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "auto" {
		return ""
	}
	return trimmed
}
