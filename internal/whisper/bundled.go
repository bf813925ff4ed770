package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/fmueller/whisperjson/internal/platform"
	"go.uber.org/zap"
)

// BundledEngine runs the whisper.cpp whisper-cli executable once per
// transcription and reads back its JSON output file.
type BundledEngine struct {
	Executable string
	ModelDir   string
	Threads    int
	Logger     *zap.Logger
}

func NewBundledEngine(opts Options) (*BundledEngine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	executable, err := locateEngine(opts.WhisperPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("using whisper-cli", zap.String("engine", executable))
	return &BundledEngine{
		Executable: executable,
		ModelDir:   opts.ModelDir,
		Threads:    opts.Threads,
		Logger:     logger,
	}, nil
}

func locateEngine(override string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		if err := ensureExecutable(override); err != nil {
			return "", fmt.Errorf("%w: WHISPERJSON_WHISPER_PATH is not executable: %v", ErrEngineUnavailable, err)
		}
		return override, nil
	}

	if found, err := exec.LookPath(engineBinaryName()); err == nil {
		return found, nil
	}

	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("%w: whisper-cli not on PATH and own executable path unknown: %v", ErrEngineUnavailable, err)
	}

	resolved, err := ResolveBundledEnginePath(self)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

func ResolveBundledEnginePath(selfExecutable string) (string, error) {
	for _, candidate := range EnginePathCandidates(selfExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: whisper-cli not found on PATH or near %s. Install whisper.cpp (https://github.com/ggml-org/whisper.cpp) so that %s is on PATH, or set WHISPERJSON_WHISPER_PATH", ErrEngineUnavailable, selfExecutable, engineBinaryName())
}

func EnginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	engineName := engineBinaryName()

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, "packaging", "whisper", platform.HostTarget(), engineName),
		filepath.Join(binDir, engineName),
	}
}

func (b *BundledEngine) Transcribe(ctx context.Context, req TranscriptionRequest) (Transcription, error) {
	audioPath, err := checkAudioPath(req.AudioPath)
	if err != nil {
		return Transcription{}, err
	}

	model, err := ResolveModel(req.Model, b.ModelDir)
	if err != nil {
		return Transcription{}, err
	}

	if err := ensureExecutable(b.Executable); err != nil {
		return Transcription{}, fmt.Errorf("whisper-cli missing or not executable: %w", err)
	}

	outDir, err := os.MkdirTemp("", "whisperjson-")
	if err != nil {
		return Transcription{}, fmt.Errorf("create output directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	outBase := filepath.Join(outDir, "transcript")
	args := b.commandArgs(model.Path, audioPath, outBase, req)

	cmd := exec.CommandContext(ctx, b.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	b.log().Debug("running whisper-cli", zap.String("engine", b.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Transcription{}, ctxErr
		}
		return Transcription{}, describeRunError(b.Executable, err, strings.TrimSpace(stderr.String()))
	}

	content, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return Transcription{}, fmt.Errorf("read whisper-cli output: %w", err)
	}

	return parseCLIOutput(content)
}

func (b *BundledEngine) commandArgs(modelPath, audioPath, outBase string, req TranscriptionRequest) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-l", languageOrAuto(req.Language),
		"-oj",
		"-of", outBase,
		"-np",
	}
	if b.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(b.Threads))
	}
	// Flash attention runs in half precision and is on by default in whisper-cli.
	if req.FP16 {
		args = append(args, "-fa")
	} else {
		args = append(args, "-nfa")
	}
	return args
}

func (b *BundledEngine) log() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

type cliOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseCLIOutput(content []byte) (Transcription, error) {
	var out cliOutput
	if err := json.Unmarshal(content, &out); err != nil {
		return Transcription{}, fmt.Errorf("decode whisper-cli output: %w", err)
	}

	result := Transcription{
		Language: out.Result.Language,
		Segments: make([]Segment, 0, len(out.Transcription)),
	}

	var text strings.Builder
	for i, entry := range out.Transcription {
		result.Segments = append(result.Segments, Segment{
			ID:    i,
			Start: millisToSeconds(entry.Offsets.From),
			End:   millisToSeconds(entry.Offsets.To),
			Text:  entry.Text,
		})
		text.WriteString(entry.Text)
	}
	result.Text = text.String()

	return result, nil
}

func millisToSeconds(ms int64) float64 {
	return float64(ms) / 1000.0
}

func checkAudioPath(audioPath string) (string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return "", errors.New("audio path is required")
	}

	cleaned := filepath.Clean(audioPath)
	info, err := os.Stat(cleaned)
	if err != nil {
		return "", fmt.Errorf("audio file not found: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("audio path %s is a directory", cleaned)
	}
	return cleaned, nil
}

func describeRunError(executable string, runErr error, errText string) error {
	if isMissingSharedLibraryError(errText) {
		return fmt.Errorf("whisper-cli at %s is missing required shared libraries (%s); reinstall whisper.cpp or rebuild whisper-cli with BUILD_SHARED_LIBS=OFF", executable, errText)
	}
	if isIllegalInstructionError(errText) || isIllegalInstructionError(runErr.Error()) {
		return errors.New("whisper-cli crashed with an illegal CPU instruction; " +
			"your CPU may lack required instruction set extensions; " +
			"set WHISPERJSON_WHISPER_PATH to a whisper-cli binary built for your CPU")
	}
	if errText == "" {
		return fmt.Errorf("whisper transcribe failed: %w", runErr)
	}
	return fmt.Errorf("whisper transcribe failed: %w (%s)", runErr, lastLines(errText, 5))
}

// lastLines keeps the tail of whisper-cli's stderr, where the failure reason is.
func lastLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
