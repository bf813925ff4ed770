package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/fmueller/whisperjson/internal/config"
	"github.com/fmueller/whisperjson/internal/whisper"
)

type fakeEngine struct {
	result   whisper.Transcription
	err      error
	panicVal any
	requests []whisper.TranscriptionRequest
}

func (f *fakeEngine) Transcribe(_ context.Context, req whisper.TranscriptionRequest) (whisper.Transcription, error) {
	f.requests = append(f.requests, req)
	if f.panicVal != nil {
		panic(f.panicVal)
	}
	return f.result, f.err
}

func testConfig() config.Config {
	return config.Config{
		Engine:         whisper.EngineWhisperCLI,
		SidecarURL:     whisper.DefaultSidecarURL,
		SidecarTimeout: whisper.DefaultSidecarTimeout,
		Threads:        1,
		LogFormat:      config.LogFormatConsole,
	}
}

func newTestApp(cfg config.Config, engine whisper.Engine, engineErr error) *appState {
	app := newAppState()
	app.configFn = func() (config.Config, error) { return cfg, nil }
	if engine != nil || engineErr != nil {
		app.engineFn = func(context.Context, config.Config) (whisper.Engine, error) {
			if engineErr != nil {
				return nil, engineErr
			}
			return engine, nil
		}
	}
	return app
}

func runApp(t *testing.T, ctx context.Context, app *appState, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.ExecuteContext(ctx)
	return outBuf.String(), errBuf.String(), err
}

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()
	return runApp(t, context.Background(), newTestApp(testConfig(), &fakeEngine{}, nil), args)
}
