//go:build !whisper_cpp

package whisper

import "fmt"

// NewLibraryEngine reports the in-process engine as missing in builds
// without the whisper_cpp tag.
func NewLibraryEngine(Options) (Engine, error) {
	return nil, fmt.Errorf("%w: this build has no in-process whisper.cpp support; rebuild with -tags whisper_cpp against libwhisper, or set WHISPERJSON_ENGINE=%s", ErrEngineUnavailable, EngineWhisperCLI)
}
