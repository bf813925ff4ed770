package whisper

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireUnixShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake whisper-cli scripts need a unix shell")
	}
}

// writeFakeCLI writes an executable shell script that stands in for
// whisper-cli. The body runs after "-of <base>" has been parsed into $out.
func writeFakeCLI(t *testing.T, dir, body string) string {
	t.Helper()

	script := "#!/bin/sh\n" +
		"out=\"\"\n" +
		"for arg in \"$@\"; do\n" +
		"  if [ \"$prev\" = \"-of\" ]; then out=\"$arg\"; fi\n" +
		"  prev=\"$arg\"\n" +
		"done\n" +
		body + "\n"

	path := filepath.Join(dir, "whisper-cli")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeModel(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, ModelFileName(name))
	require.NoError(t, os.WriteFile(path, []byte("ggml"), 0o644))
	return path
}

func writeAudio(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "sample.wav")
	require.NoError(t, os.WriteFile(path, makePCM16WAV(make([]int16, 1600), 16000, 1), 0o644))
	return path
}

func makePCM16WAV(samples []int16, sampleRate int, channels int) []byte {
	bytesPerSample := 2
	dataSize := len(samples) * bytesPerSample
	fmtChunkSize := 16
	riffSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	out := make([]byte, 12+8+fmtChunkSize+8+dataSize)
	off := 0

	copy(out[off:], []byte("RIFF"))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(riffSize))
	off += 4
	copy(out[off:], []byte("WAVE"))
	off += 4

	copy(out[off:], []byte("fmt "))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(fmtChunkSize))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], 1)
	off += 2
	binary.LittleEndian.PutUint16(out[off:], uint16(channels))
	off += 2
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(sampleRate*channels*bytesPerSample))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], uint16(channels*bytesPerSample))
	off += 2
	binary.LittleEndian.PutUint16(out[off:], 16)
	off += 2

	copy(out[off:], []byte("data"))
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(dataSize))
	off += 4

	for _, s := range samples {
		binary.LittleEndian.PutUint16(out[off:], uint16(s))
		off += 2
	}

	return out
}
