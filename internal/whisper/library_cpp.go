//go:build whisper_cpp

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/wav"
	"go.uber.org/zap"
)

const librarySampleRate = 16000

// libraryEngine runs whisper.cpp in-process through its cgo bindings. The
// model is loaded per call since the process transcribes a single file.
type libraryEngine struct {
	modelDir string
	threads  int
	logger   *zap.Logger
}

func NewLibraryEngine(opts Options) (Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &libraryEngine{modelDir: opts.ModelDir, threads: opts.Threads, logger: logger}, nil
}

func (e *libraryEngine) Transcribe(ctx context.Context, req TranscriptionRequest) (Transcription, error) {
	audioPath, err := checkAudioPath(req.AudioPath)
	if err != nil {
		return Transcription{}, err
	}

	model, err := ResolveModel(req.Model, e.modelDir)
	if err != nil {
		return Transcription{}, err
	}

	samples, err := readMonoSamples(audioPath)
	if err != nil {
		return Transcription{}, err
	}

	m, err := whisperlib.New(model.Path)
	if err != nil {
		return Transcription{}, fmt.Errorf("load model %s: %w", model.Path, err)
	}
	defer m.Close()

	wctx, err := m.NewContext()
	if err != nil {
		return Transcription{}, fmt.Errorf("create context: %w", err)
	}
	if e.threads > 0 {
		wctx.SetThreads(uint(e.threads))
	}

	lang := languageOrAuto(req.Language)
	if err := wctx.SetLanguage(lang); err != nil {
		return Transcription{}, fmt.Errorf("set language %q: %w", lang, err)
	}

	e.logger.Debug("processing samples", zap.String("model", model.Path), zap.Int("samples", len(samples)), zap.String("language", lang))
	keepGoing := func() bool { return ctx.Err() == nil }
	if err := wctx.Process(samples, keepGoing, nil, nil); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Transcription{}, ctxErr
		}
		return Transcription{}, fmt.Errorf("process audio: %w", err)
	}

	result := Transcription{Segments: []Segment{}}
	var text strings.Builder
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Transcription{}, fmt.Errorf("read segment: %w", err)
		}

		tokens := make([]int, 0, len(seg.Tokens))
		for _, tok := range seg.Tokens {
			tokens = append(tokens, tok.Id)
		}
		result.Segments = append(result.Segments, Segment{
			ID:     seg.Num,
			Start:  seg.Start.Seconds(),
			End:    seg.End.Seconds(),
			Text:   seg.Text,
			Tokens: tokens,
		})
		text.WriteString(seg.Text)
	}
	result.Text = text.String()

	result.Language = lang
	if lang == "auto" {
		result.Language = wctx.DetectedLanguage()
	}

	return result, nil
}

// readMonoSamples loads a 16 kHz WAV file as float32 samples in [-1, 1],
// averaging channels down to mono.
func readMonoSamples(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}
	if dec.SampleRate != librarySampleRate {
		return nil, fmt.Errorf("%s has sample rate %d Hz; the library engine needs %d Hz audio", path, dec.SampleRate, librarySampleRate)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%s contains no audio samples", path)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	channels := int(dec.NumChans)
	if channels <= 0 {
		channels = 1
	}

	out := make([]float32, 0, len(buf.Data)/channels)
	for i := 0; i+channels <= len(buf.Data); i += channels {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i+c]) / scale
		}
		out = append(out, sum/float32(channels))
	}
	return out, nil
}
