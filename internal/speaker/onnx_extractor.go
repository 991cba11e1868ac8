package speaker

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// ModelDownloadURL is where the WeSpeaker speaker-recognition model is
// published.
const ModelDownloadURL = "https://github.com/k2-fsa/sherpa-onnx/releases/download/speaker-recongition-models/wespeaker_en_voxceleb_CAM++.onnx"

// ortInitOnce ensures the ONNX Runtime environment is initialized exactly
// once per process. The error is kept at package scope so later constructor
// calls surface the original failure instead of proceeding uninitialized.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// ONNXExtractor runs the WeSpeaker ECAPA-TDNN speaker model through ONNX
// Runtime. The model weights are loaded read-only once; Extract is safe to
// call from multiple sessions concurrently.
type ONNXExtractor struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	sampleRate int
	log        *zap.Logger
}

// NewONNXExtractor loads the speaker model from modelPath. sampleRate is the
// capture rate of the audio handed to Extract; non-positive falls back to
// 16 kHz. A missing file returns ErrModelNotLoaded; the caller decides
// whether to run without recognition.
func NewONNXExtractor(modelPath string, sampleRate int, log *zap.Logger) (*ONNXExtractor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if _, err := os.Stat(modelPath); err != nil {
		log.Warn("speaker model not found",
			zap.String("path", modelPath),
			zap.String("download", ModelDownloadURL))
		return nil, fmt.Errorf("%w: %s", ErrModelNotLoaded, modelPath)
	}

	ortInitOnce.Do(func() {
		libPath, err := resolveORTLibPath()
		if err != nil {
			ortInitErr = fmt.Errorf("resolve onnxruntime lib: %w", err)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelNotLoaded, ortInitErr)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"wav"},
		[]string{"embedding"},
		nil, // default session options
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrModelNotLoaded, err)
	}

	log.Info("speaker model loaded",
		zap.String("path", modelPath),
		zap.Int("embedding_dim", Dim))

	return &ONNXExtractor{session: session, sampleRate: sampleRate, log: log}, nil
}

// Extract computes the 192-dimensional embedding for one utterance.
// Deterministic for byte-identical input. Input below MinUtterance fails
// with ErrTooShort; empty or non-finite buffers fail with ErrInvalidInput.
func (x *ONNXExtractor) Extract(ctx context.Context, samples []float32) (Embedding, error) {
	if len(samples) == 0 {
		return nil, ErrInvalidInput
	}
	for _, s := range samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			return nil, ErrInvalidInput
		}
	}
	minSamples := MinSamples(x.sampleRate)
	if len(samples) < minSamples {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrTooShort, len(samples), minSamples)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(len(samples))), samples)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}

	// A session run mutates internal runtime state; serialize runs and let
	// callers overlap only the surrounding work.
	x.mu.Lock()
	err = x.session.Run([]ort.Value{input}, outputs)
	x.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("speaker model inference: %w", err)
	}

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok || out == nil {
		return nil, fmt.Errorf("speaker model returned unexpected output type")
	}
	defer out.Destroy()

	data := out.GetData()
	if len(data) != Dim {
		return nil, fmt.Errorf("speaker model returned %d-dim embedding, expected %d", len(data), Dim)
	}
	emb := make(Embedding, Dim)
	copy(emb, data)
	return emb, nil
}

// Close releases the ONNX session. Safe to call more than once.
func (x *ONNXExtractor) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.session != nil {
		x.session.Destroy()
		x.session = nil
	}
	return nil
}

// resolveORTLibPath locates the ONNX Runtime shared library. Search order:
//  1. ARIA_ORT_LIB_PATH environment variable (explicit override)
//  2. lib/<goos>-<goarch>/ relative to the executable
//  3. ../lib/<goos>-<goarch>/ relative to the executable (bin/ layout)
func resolveORTLibPath() (string, error) {
	if envPath := os.Getenv("ARIA_ORT_LIB_PATH"); envPath != "" {
		info, err := os.Stat(envPath)
		if err != nil {
			return "", fmt.Errorf("ARIA_ORT_LIB_PATH=%q does not exist", envPath)
		}
		if info.IsDir() {
			return "", fmt.Errorf("ARIA_ORT_LIB_PATH=%q is a directory, expected a file", envPath)
		}
		return envPath, nil
	}

	filename := ortLibFilename()
	rels := []string{
		filepath.Join("lib", runtime.GOOS+"-"+runtime.GOARCH, filename),
		filepath.Join("..", "lib", runtime.GOOS+"-"+runtime.GOARCH, filename),
	}
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		for _, rel := range rels {
			path := filepath.Join(exeDir, rel)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("onnxruntime shared library not found; searched lib/%s-%s/%s relative to executable (set ARIA_ORT_LIB_PATH to override)",
		runtime.GOOS, runtime.GOARCH, filename)
}

func ortLibFilename() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

var _ Extractor = (*ONNXExtractor)(nil)
