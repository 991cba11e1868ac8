package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// TranscriptionResult represents a single transcription result
type TranscriptionResult struct {
	Index      int       `json:"index"`
	SessionID  string    `json:"session_id,omitempty"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Duration   float64   `json:"duration_seconds,omitempty"`
	Reason     string    `json:"reason,omitempty"`

	// Speaker attribution, present only when recognition ran.
	Speaker           string  `json:"speaker,omitempty"`
	SpeakerSimilarity float64 `json:"speaker_similarity,omitempty"`
	SpeakerIdentified bool    `json:"speaker_identified"`
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for output formatters
type Formatter interface {
	// WriteResult writes a transcription result
	WriteResult(result TranscriptionResult) error

	// WriteEvent writes a system event (e.g., VAD state changes)
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// JSONFormatter outputs transcriptions as a JSON stream
type JSONFormatter struct {
	writer  io.Writer
	encoder *json.Encoder
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return &JSONFormatter{
		writer:  writer,
		encoder: encoder,
	}
}

// WriteResult writes a transcription result in JSON format
func (j *JSONFormatter) WriteResult(result TranscriptionResult) error {
	return j.encoder.Encode(result)
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	event := Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
	return j.encoder.Encode(event)
}

// Flush ensures all buffered output is written
func (j *JSONFormatter) Flush() error {
	// JSON encoder writes immediately, nothing to flush
	return nil
}

// Close closes the formatter
func (j *JSONFormatter) Close() error {
	return nil
}

// PlainTextFormatter outputs transcriptions in plain text format
type PlainTextFormatter struct {
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{
		writer: writer,
	}
}

// WriteResult writes a transcription result in plain text. Identified
// speakers are shown as a prefix; unknown voices are marked as such when
// recognition ran.
func (p *PlainTextFormatter) WriteResult(result TranscriptionResult) error {
	timestamp := result.Timestamp.Format("15:04:05")

	var text string
	switch {
	case result.SpeakerIdentified:
		text = fmt.Sprintf("[%s] %s: %s\n", timestamp, result.Speaker, result.Text)
	case result.Speaker == "" && result.SpeakerSimilarity > 0:
		text = fmt.Sprintf("[%s] (unknown): %s\n", timestamp, result.Text)
	default:
		text = fmt.Sprintf("[%s] %s\n", timestamp, result.Text)
	}

	_, err := p.writer.Write([]byte(text))
	return err
}

// WriteEvent writes a system event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	timestamp := time.Now().Format("15:04:05")
	text := fmt.Sprintf("[%s] [%s] %s\n", timestamp, eventType, message)
	_, err := p.writer.Write([]byte(text))
	return err
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (p *PlainTextFormatter) Close() error {
	return nil
}
