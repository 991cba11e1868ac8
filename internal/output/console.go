package output

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleOutput handles outputting transcriptions to the console
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	showTimestamp bool
	showMetadata  bool
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp
	ShowTimestamp bool

	// ShowMetadata displays additional metadata (confidence, similarity)
	ShowMetadata bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}

	return &ConsoleOutput{
		writer:        writer,
		showTimestamp: config.ShowTimestamp,
		showMetadata:  config.ShowMetadata,
	}
}

// DefaultConsoleOutput creates a console output with default settings
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{
		ShowTimestamp: true,
		ShowMetadata:  false,
		Writer:        os.Stdout,
	})
}

// WriteResult writes a transcription result to the console, prefixed with
// the identified speaker's name when available.
func (c *ConsoleOutput) WriteResult(result TranscriptionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	timestamp := ""
	if c.showTimestamp {
		timestamp = fmt.Sprintf("[%s] ", result.Timestamp.Format("15:04:05"))
	}

	who := ""
	switch {
	case result.SpeakerIdentified:
		who = result.Speaker + ": "
	case result.Speaker == "" && result.SpeakerSimilarity > 0:
		who = "(unknown): "
	}

	metadata := ""
	if c.showMetadata {
		metadata = fmt.Sprintf(" (confidence: %.2f", result.Confidence)
		if result.SpeakerIdentified {
			metadata += fmt.Sprintf(", similarity: %.2f", result.SpeakerSimilarity)
		}
		metadata += ")"
	}

	fmt.Fprintf(c.writer, "%s%s%s%s\n", timestamp, who, result.Text, metadata)
	return nil
}

// WriteEvent writes a system event.
func (c *ConsoleOutput) WriteEvent(eventType, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "[%s] %s\n", eventType, message)
	return nil
}

// Flush is a no-op; console writes are unbuffered.
func (c *ConsoleOutput) Flush() error {
	return nil
}

// Close closes the handler.
func (c *ConsoleOutput) Close() error {
	return nil
}

// WriteAudioLevel writes the current audio level (for calibration display)
func (c *ConsoleOutput) WriteAudioLevel(level float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Create a simple bar visualization
	barLength := int(level * 50) // 50 chars max
	if barLength > 50 {
		barLength = 50
	}

	bar := ""
	for i := 0; i < barLength; i++ {
		bar += "="
	}

	fmt.Fprintf(c.writer, "\rLevel: [%-50s] %.1f%%", bar, level*100)
	return nil
}

// Clear clears the current line
func (c *ConsoleOutput) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%80s\r", " ") // Clear line
	return nil
}

// Info writes an informational message
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "[INFO] %s\n", msg)
}

// Error writes an error message to stderr
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(os.Stderr, "[ERROR] %s\n", msg)
}

// Status writes a status message (typically overwritten)
func (c *ConsoleOutput) Status(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r[*] %s", msg)
}

var _ Formatter = (*ConsoleOutput)(nil)
