package cli

import (
	"context"
	"io"
	"os"

	"github.com/fmueller/whisperjson/internal/config"
	"github.com/fmueller/whisperjson/internal/platform"
	"github.com/fmueller/whisperjson/internal/version"
	"github.com/fmueller/whisperjson/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type appState struct {
	audioPath string
	model     string
	language  string

	cfg    config.Config
	logger *zap.Logger
	out    io.Writer

	configFn func() (config.Config, error)
	engineFn func(ctx context.Context, cfg config.Config) (whisper.Engine, error)
}

// The git describe lookup only runs when --version is rendered.
func init() {
	cobra.AddTemplateFunc("resolvedVersion", version.Resolve)
}

func newAppState() *appState {
	app := &appState{
		model: whisper.DefaultModel,
		out:   os.Stdout,
	}
	app.configFn = config.Load
	app.engineFn = app.newEngine
	return app
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(newAppState())
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "whisperjson --audio <path>",
		Short:         "Transcribe an audio file with whisper and print the result as JSON",
		Long:          "Transcribe an audio file with whisper and print a single JSON object on stdout:\n{\"text\": ..., \"language\": ..., \"segments\": [...]} on success or {\"error\": ...} on failure.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.out = cmd.OutOrStdout()
			return app.run(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("whisperjson v{{resolvedVersion}}\n")

	cmd.Flags().StringVar(&app.audioPath, "audio", app.audioPath, "Path to the audio file to transcribe")
	cmd.Flags().StringVar(&app.model, "model", app.model, "Whisper model name (tiny, base, small, medium, large) or model file path")
	cmd.Flags().StringVar(&app.language, "language", app.language, "Force transcription language (optional; auto-detected when unset)")
	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagFilename("audio")

	return cmd
}

func (a *appState) newEngine(ctx context.Context, cfg config.Config) (whisper.Engine, error) {
	opts := whisper.Options{
		Name:           cfg.Engine,
		WhisperPath:    cfg.WhisperPath,
		SidecarURL:     cfg.SidecarURL,
		SidecarTimeout: cfg.SidecarTimeout,
		Threads:        cfg.Threads,
		Logger:         a.log(),
	}

	if cfg.Engine != whisper.EngineSidecar {
		modelDir, err := platform.ResolveModelDir(cfg.ModelDir)
		if err != nil {
			return nil, err
		}
		opts.ModelDir = modelDir
	}

	return whisper.NewEngine(ctx, opts)
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if !a.cfg.Progress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}
