// Package setup detects and installs the local embedding dependencies of the
// embedding similarity measure: the llama.cpp shared libraries and a GGUF model.
package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hybridgroup/yzma/pkg/download"
	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/store"
)

// DefaultEmbeddingModelURL returns the HuggingFace URL for the default embedding model.
func DefaultEmbeddingModelURL() string {
	return "https://huggingface.co/nomic-ai/nomic-embed-text-v1.5-GGUF/resolve/main/nomic-embed-text-v1.5.Q4_K_M.gguf"
}

// Embeddings describes the detected state of the embedding dependencies.
type Embeddings struct {
	BaseDir   string `json:"base_dir"`
	LibPath   string `json:"lib_path,omitempty"`   // llama.cpp libs directory, empty if not found
	ModelPath string `json:"model_path,omitempty"` // GGUF model file, empty if not found
	Available bool   `json:"available"`            // both lib and model found
}

// DefaultDir returns the directory embedding dependencies are installed to
// (~/.tracelink/embeddings). Empty when the home directory is unknown.
func DefaultDir() string {
	global, err := store.GlobalPath()
	if err != nil {
		return ""
	}
	return filepath.Join(global, "embeddings")
}

// Detect checks baseDir/lib for the llama.cpp library and baseDir/models for a
// GGUF model. The first model in directory order wins.
func Detect(baseDir string) Embeddings {
	result := Embeddings{BaseDir: baseDir}
	if baseDir == "" {
		return result
	}

	libDir := filepath.Join(baseDir, "lib")
	if _, err := os.Stat(filepath.Join(libDir, libraryFileName())); err == nil {
		result.LibPath = libDir
	}

	modelsDir := filepath.Join(baseDir, "models")
	if entries, err := os.ReadDir(modelsDir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".gguf" {
				result.ModelPath = filepath.Join(modelsDir, entry.Name())
				break
			}
		}
	}

	result.Available = result.LibPath != "" && result.ModelPath != ""
	return result
}

// Apply fills the unset paths of cfg from a complete installation.
// Explicit configuration always wins. Reports whether cfg changed.
func Apply(cfg *config.EmbeddingConfig, found Embeddings) bool {
	if !found.Available {
		return false
	}
	changed := false
	if cfg.ModelPath == "" {
		cfg.ModelPath = found.ModelPath
		changed = true
	}
	if cfg.LibPath == "" {
		cfg.LibPath = found.LibPath
		changed = true
	}
	return changed
}

func libraryFileName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libllama.dylib"
	case "windows":
		return "llama.dll"
	default:
		return "libllama.so"
	}
}

// Install downloads whatever Detect does not find under baseDir and returns
// the resulting state.
func Install(ctx context.Context, baseDir string) (Embeddings, error) {
	found := Detect(baseDir)
	if found.LibPath == "" {
		if err := DownloadLibraries(ctx, filepath.Join(baseDir, "lib")); err != nil {
			return found, err
		}
	}
	if found.ModelPath == "" {
		if err := DownloadEmbeddingModel(ctx, filepath.Join(baseDir, "models")); err != nil {
			return found, err
		}
	}
	return Detect(baseDir), nil
}

// DownloadLibraries downloads the CPU build of the latest llama.cpp libraries to destDir.
func DownloadLibraries(ctx context.Context, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating lib directory: %w", err)
	}

	version, err := download.LlamaLatestVersion()
	if err != nil {
		return fmt.Errorf("getting latest llama.cpp version: %w", err)
	}

	return download.GetWithContext(ctx, runtime.GOARCH, runtime.GOOS, "cpu", version, destDir, download.ProgressTracker)
}

// DownloadEmbeddingModel downloads the default embedding model to destDir.
func DownloadEmbeddingModel(ctx context.Context, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating models directory: %w", err)
	}

	return download.GetModelWithContext(ctx, DefaultEmbeddingModelURL(), destDir, download.ProgressTracker)
}
