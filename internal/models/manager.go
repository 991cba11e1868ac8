// Package models manages the on-disk model catalog: Vosk STT model
// directories and the speaker embedding ONNX file, downloaded on demand.
package models

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Kind distinguishes how a model is stored and used.
type Kind string

const (
	// KindSTT is a Vosk model: a zip archive extracting to a directory.
	KindSTT Kind = "stt"
	// KindSpeaker is a speaker embedding model: a single ONNX file.
	KindSpeaker Kind = "speaker"
)

// Model represents a downloadable model
type Model struct {
	Name        string
	Kind        Kind
	Language    string
	Size        string
	URL         string
	Description string
}

// Available models
var AvailableModels = []Model{
	{
		Name:        "vosk-model-small-en-us-0.15",
		Kind:        KindSTT,
		Language:    "en-US",
		Size:        "40M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Description: "Lightweight English model, fast but less accurate",
	},
	{
		Name:        "vosk-model-en-us-0.22",
		Kind:        KindSTT,
		Language:    "en-US",
		Size:        "1.8G",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22.zip",
		Description: "Large English model, slower but more accurate",
	},
	{
		Name:        "vosk-model-en-us-0.22-lgraph",
		Kind:        KindSTT,
		Language:    "en-US",
		Size:        "128M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22-lgraph.zip",
		Description: "Medium English model, balanced speed and accuracy",
	},
	{
		Name:        "wespeaker-campplus.onnx",
		Kind:        KindSpeaker,
		Language:    "multilingual",
		Size:        "28M",
		URL:         "https://github.com/k2-fsa/sherpa-onnx/releases/download/speaker-recongition-models/wespeaker_en_voxceleb_CAM%2B%2B.onnx",
		Description: "WeSpeaker CAM++ speaker embedding model (192-dim)",
	},
}

// Default model names per kind.
const (
	DefaultSTTModelName     = "vosk-model-small-en-us-0.15"
	DefaultSpeakerModelName = "wespeaker-campplus.onnx"
)

// Manager resolves, downloads, and lists models under one root directory.
type Manager struct {
	dir string
}

// NewManager creates a manager rooted at dir. An empty dir falls back to
// ./models under the working directory.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = filepath.Join(cwd, "models")
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the models root directory.
func (m *Manager) Dir() string {
	return m.dir
}

// FindModel finds a model by name in the available models list
func FindModel(name string) *Model {
	for _, model := range AvailableModels {
		if model.Name == name {
			return &model
		}
	}
	return nil
}

// IsDownloaded checks if a model is already present on disk.
func (m *Manager) IsDownloaded(modelName string) (bool, error) {
	model := FindModel(modelName)
	if model == nil {
		return false, fmt.Errorf("unknown model: %s", modelName)
	}

	info, err := os.Stat(filepath.Join(m.dir, modelName))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if model.Kind == KindSTT {
		return info.IsDir(), nil
	}
	return !info.IsDir(), nil
}

// Path returns the on-disk path of a downloaded model: a directory for STT
// models, a file for speaker models.
func (m *Manager) Path(modelName string) (string, error) {
	downloaded, err := m.IsDownloaded(modelName)
	if err != nil {
		return "", err
	}
	if !downloaded {
		return "", fmt.Errorf("model not found: %s (run with -download-model to fetch it)", modelName)
	}
	return filepath.Join(m.dir, modelName), nil
}

// Download fetches a model. STT models arrive as zip archives and are
// extracted in place; speaker models are single files written directly.
func (m *Manager) Download(modelName string, progress func(downloaded, total int64)) error {
	model := FindModel(modelName)
	if model == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	switch model.Kind {
	case KindSpeaker:
		return m.downloadFile(model, filepath.Join(m.dir, model.Name), progress)
	default:
		return m.downloadArchive(model, progress)
	}
}

// downloadFile streams a single-file model to its final path via a temp file,
// so a partial download never passes for a complete model.
func (m *Manager) downloadFile(model *Model, destPath string, progress func(downloaded, total int64)) error {
	tmpPath := destPath + ".partial"
	defer os.Remove(tmpPath)

	if err := m.fetch(model.URL, tmpPath, progress); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to finalize model file: %w", err)
	}
	return nil
}

// downloadArchive fetches a zip model and extracts it into the models root.
func (m *Manager) downloadArchive(model *Model, progress func(downloaded, total int64)) error {
	zipPath := filepath.Join(m.dir, model.Name+".zip")
	defer os.Remove(zipPath) // Clean up zip file after extraction

	if err := m.fetch(model.URL, zipPath, progress); err != nil {
		return err
	}
	if err := extractZip(zipPath, m.dir); err != nil {
		return fmt.Errorf("failed to extract model: %w", err)
	}
	return nil
}

// fetch downloads a URL to a local file with progress reporting.
func (m *Manager) fetch(url, destPath string, progress func(downloaded, total int64)) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	total := resp.ContentLength
	var downloaded int64

	buf := make([]byte, 32*1024) // 32KB buffer
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write file: %w", writeErr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("download error: %w", err)
		}
	}
	return nil
}

// extractZip extracts a zip file to the specified directory
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// Check for ZipSlip vulnerability
		if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			os.MkdirAll(fpath, os.ModePerm)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
			return err
		}

		outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			outFile.Close()
			return err
		}

		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

// ListDownloaded lists models present on disk.
func (m *Manager) ListDownloaded() ([]string, error) {
	if _, err := os.Stat(m.dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var found []string
	for _, entry := range entries {
		if FindModel(entry.Name()) != nil {
			found = append(found, entry.Name())
		}
	}
	return found, nil
}
