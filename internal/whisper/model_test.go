package whisper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveModelDefaultsToBase(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	modelPath := filepath.Join(modelDir, "ggml-base.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("ok"), 0o644))

	resolved, err := ResolveModel("  ", modelDir)
	require.NoError(t, err)
	require.Equal(t, DefaultModel, resolved.Name)
	require.Equal(t, modelPath, resolved.Path)
	require.False(t, resolved.IsCustomPath)
}

func TestResolveModelLargeAlias(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	modelPath := filepath.Join(modelDir, "ggml-large-v3.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("ok"), 0o644))

	resolved, err := ResolveModel("large", modelDir)
	require.NoError(t, err)
	require.Equal(t, "large-v3", resolved.Name)
	require.Equal(t, modelPath, resolved.Path)
}

func TestResolveModelAcceptsUnlistedName(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	modelPath := filepath.Join(modelDir, "ggml-distil-small.en.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("ok"), 0o644))

	resolved, err := ResolveModel("distil-small.en", modelDir)
	require.NoError(t, err)
	require.Equal(t, modelPath, resolved.Path)
}

func TestResolveModelMissingFile(t *testing.T) {
	t.Parallel()

	modelDir := t.TempDir()
	_, err := ResolveModel("tiny", modelDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), `model "tiny" not found`)
	require.Contains(t, err.Error(), filepath.Join(modelDir, "ggml-tiny.bin"))
	require.Contains(t, err.Error(), "known models:")
}

func TestResolveModelRequiresDirectoryForNamedModel(t *testing.T) {
	t.Parallel()

	_, err := ResolveModel("tiny", "")
	require.Error(t, err)
}

func TestResolveModelCustomPath(t *testing.T) {
	t.Parallel()

	custom := filepath.Join(t.TempDir(), "custom.bin")
	require.NoError(t, os.WriteFile(custom, []byte("x"), 0o644))

	resolved, err := ResolveModel(custom, "")
	require.NoError(t, err)
	require.True(t, resolved.IsCustomPath)
	require.Equal(t, custom, resolved.Path)
}

func TestResolveModelMissingCustomPath(t *testing.T) {
	t.Parallel()

	_, err := ResolveModel(filepath.Join(t.TempDir(), "gone.bin"), t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "custom model path does not exist")
}

func TestModelNamesSortedAndComplete(t *testing.T) {
	t.Parallel()

	names := ModelNames()
	require.IsNonDecreasing(t, names)
	for _, want := range []string{"tiny", "base", "small", "medium", "large-v3"} {
		require.Contains(t, names, want)
	}
}

func TestLanguageOrAuto(t *testing.T) {
	t.Parallel()

	require.Equal(t, "auto", languageOrAuto(""))
	require.Equal(t, "auto", languageOrAuto("  "))
	require.Equal(t, "de", languageOrAuto("de"))
}
