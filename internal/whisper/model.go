package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const DefaultModel = "base"

// Model names published as ggml files by whisper.cpp. The list only feeds
// error hints; any name is looked up on disk.
var knownModels = []string{
	"tiny", "tiny.en",
	"base", "base.en",
	"small", "small.en",
	"medium", "medium.en",
	"large-v1", "large-v2", "large-v3", "large-v3-turbo",
}

var modelAliases = map[string]string{
	"large": "large-v3",
	"turbo": "large-v3-turbo",
}

type ResolvedModel struct {
	Name         string
	Path         string
	IsCustomPath bool
}

func ModelNames() []string {
	names := slices.Clone(knownModels)
	slices.Sort(names)
	return names
}

func ModelFileName(name string) string {
	return "ggml-" + name + ".bin"
}

func ResolveModel(modelRef, modelDir string) (ResolvedModel, error) {
	modelRef = strings.TrimSpace(modelRef)
	if modelRef == "" {
		modelRef = DefaultModel
	}

	if looksLikePath(modelRef) {
		customPath := filepath.Clean(modelRef)
		if _, err := os.Stat(customPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return ResolvedModel{}, fmt.Errorf("custom model path does not exist: %s", customPath)
			}
			return ResolvedModel{}, fmt.Errorf("stat custom model path: %w", err)
		}
		return ResolvedModel{Path: customPath, IsCustomPath: true}, nil
	}

	name := modelRef
	if alias, ok := modelAliases[name]; ok {
		name = alias
	}

	if strings.TrimSpace(modelDir) == "" {
		return ResolvedModel{}, errors.New("model directory must not be empty for named model")
	}

	modelPath := filepath.Join(modelDir, ModelFileName(name))
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ResolvedModel{}, fmt.Errorf("model %q not found at %s (known models: %s)", modelRef, modelPath, strings.Join(ModelNames(), ", "))
		}
		return ResolvedModel{}, fmt.Errorf("stat model path: %w", err)
	}

	return ResolvedModel{Name: name, Path: modelPath}, nil
}

func looksLikePath(input string) bool {
	return strings.ContainsRune(input, os.PathSeparator) || strings.ContainsRune(input, '/') || strings.HasSuffix(strings.ToLower(input), ".bin")
}
