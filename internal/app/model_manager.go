package app

import (
	"fmt"
	"os"

	"github.com/emmett/aria/internal/models"
)

// ModelManager wraps the model catalog for the CLI.
type ModelManager struct {
	mgr *models.Manager
}

// NewModelManager creates a model manager rooted at dir.
func NewModelManager(dir string) (*ModelManager, error) {
	mgr, err := models.NewManager(dir)
	if err != nil {
		return nil, err
	}
	return &ModelManager{mgr: mgr}, nil
}

// ListModels prints the download catalog with per-model status.
func (m *ModelManager) ListModels() error {
	fmt.Println("Available models for download:")
	fmt.Println()

	for i, model := range models.AvailableModels {
		fmt.Printf("%d. %s\n", i+1, model.Name)
		fmt.Printf("   Kind:     %s\n", model.Kind)
		fmt.Printf("   Language: %s\n", model.Language)
		fmt.Printf("   Size:     %s\n", model.Size)
		fmt.Printf("   Info:     %s\n", model.Description)

		downloaded, _ := m.mgr.IsDownloaded(model.Name)
		if downloaded {
			fmt.Printf("   Status:   ✓ Downloaded\n")
		} else {
			fmt.Printf("   Status:   Not downloaded\n")
		}
		fmt.Println()
	}

	fmt.Println("To download a model, use:")
	fmt.Println("  aria -download-model <model-name>")
	return nil
}

// ListDownloaded prints the models present on disk.
func (m *ModelManager) ListDownloaded() error {
	downloaded, err := m.mgr.ListDownloaded()
	if err != nil {
		return fmt.Errorf("error listing models: %w", err)
	}

	if len(downloaded) == 0 {
		fmt.Println("No models downloaded yet.")
		fmt.Println()
		fmt.Println("Use 'aria -list-models' to see available models")
		fmt.Println("Use 'aria -download-model <name>' to download a model")
		return nil
	}

	fmt.Printf("Downloaded models (%d):\n", len(downloaded))
	fmt.Println()

	for i, modelName := range downloaded {
		fmt.Printf("%d. %s", i+1, modelName)
		if modelName == models.DefaultSTTModelName || modelName == models.DefaultSpeakerModelName {
			fmt.Printf(" [DEFAULT]")
		}
		fmt.Println()

		modelPath, err := m.mgr.Path(modelName)
		if err == nil {
			fmt.Printf("   Path: %s\n", modelPath)
		}
	}
	return nil
}

// Download fetches a model by name, printing progress.
func (m *ModelManager) Download(name string) error {
	model := models.FindModel(name)
	if model == nil {
		fmt.Fprintf(os.Stderr, "Error: Unknown model '%s'\n", name)
		fmt.Println()
		fmt.Println("Use 'aria -list-models' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	downloaded, err := m.mgr.IsDownloaded(name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}

	if downloaded {
		fmt.Printf("Model '%s' is already downloaded.\n", name)
		modelPath, _ := m.mgr.Path(name)
		fmt.Printf("Location: %s\n", modelPath)
		return nil
	}

	fmt.Printf("Downloading model: %s (%s)\n", model.Name, model.Size)
	fmt.Printf("Description: %s\n", model.Description)
	fmt.Println()

	err = m.mgr.Download(name, func(downloaded, total int64) {
		percent := float64(downloaded) / float64(total) * 100
		fmt.Printf("\rProgress: %.1f%% (%d/%d bytes)", percent, downloaded, total)
	})

	if err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}

	fmt.Println()
	fmt.Printf("✓ Model '%s' downloaded successfully!\n", name)
	return nil
}

// EnsureDefaults downloads the default STT and speaker models when absent.
func (m *ModelManager) EnsureDefaults(withSpeaker bool) error {
	wanted := []string{models.DefaultSTTModelName}
	if withSpeaker {
		wanted = append(wanted, models.DefaultSpeakerModelName)
	}
	for _, name := range wanted {
		downloaded, err := m.mgr.IsDownloaded(name)
		if err != nil {
			return err
		}
		if downloaded {
			continue
		}
		fmt.Printf("Model '%s' not found. Downloading...\n", name)
		if err := m.Download(name); err != nil {
			return err
		}
	}
	return nil
}
