//go:build !whisper_cpp

package whisper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLibraryEngineUnavailableWithoutBuildTag(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(context.Background(), Options{Name: EngineLibrary})
	require.ErrorIs(t, err, ErrEngineUnavailable)
	require.Contains(t, err.Error(), "-tags whisper_cpp")
}
