package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/emmett/aria/internal/audio"
)

// chunkSamples is how many samples are fed to the recognizer per
// AcceptWaveform call (32ms at 16kHz). Chunking keeps cancellation
// responsive on long utterances.
const chunkSamples = 512

// VoskEngine implements Engine using Vosk offline recognition.
type VoskEngine struct {
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
	config     Config
	mu         sync.Mutex
}

// voskResult represents the JSON result from Vosk.
type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		End   float64 `json:"end"`
		Start float64 `json:"start"`
		Word  string  `json:"word"`
	} `json:"result,omitempty"`
}

// NewVoskEngine loads the model and creates the recognizer. Model loading is
// the expensive part (hundreds of MB for large models), so it happens once
// here rather than per utterance.
func NewVoskEngine(config Config) (*VoskEngine, error) {
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, config.ModelPath)
	}

	// Suppress Vosk's own logging; we report errors ourselves.
	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model from %s: %w", config.ModelPath, err)
	}

	recognizer, err := vosk.NewRecognizer(model, float64(config.SampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}
	if config.MaxAlternatives > 0 {
		recognizer.SetMaxAlternatives(config.MaxAlternatives)
	}
	// Word results carry the per-word confidences we average from.
	recognizer.SetWords(1)

	return &VoskEngine{
		model:      model,
		recognizer: recognizer,
		config:     config,
	}, nil
}

// Transcribe feeds the full utterance through the recognizer in chunks and
// returns the final result. The recognizer resets itself after FinalResult,
// so consecutive utterances do not bleed into each other.
func (v *VoskEngine) Transcribe(ctx context.Context, samples []float32) (*Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.recognizer == nil {
		return nil, ErrNotInitialized
	}

	for off := 0; off < len(samples); off += chunkSamples {
		select {
		case <-ctx.Done():
			// Flush the recognizer so the next utterance starts clean.
			v.recognizer.FinalResult()
			return nil, ctx.Err()
		default:
		}
		end := off + chunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		v.recognizer.AcceptWaveform(audio.EncodeS16LE(samples[off:end]))
	}

	resultJSON := v.recognizer.FinalResult()
	var vr voskResult
	if err := json.Unmarshal([]byte(resultJSON), &vr); err != nil {
		return nil, fmt.Errorf("failed to parse final result: %w", err)
	}

	result := &Result{
		Text:       vr.Text,
		Confidence: averageConfidence(vr),
	}
	for _, w := range vr.Result {
		result.Words = append(result.Words, Word{
			Text:       w.Word,
			Confidence: w.Conf,
			Start:      w.Start,
			End:        w.End,
		})
	}
	return result, nil
}

// Close releases the recognizer and model.
func (v *VoskEngine) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.recognizer != nil {
		v.recognizer.Free()
		v.recognizer = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}

// averageConfidence averages word-level confidences from a Vosk result.
func averageConfidence(vr voskResult) float64 {
	if len(vr.Result) == 0 {
		return 0.0
	}
	var sum float64
	for _, word := range vr.Result {
		sum += word.Conf
	}
	return sum / float64(len(vr.Result))
}

var _ Engine = (*VoskEngine)(nil)
