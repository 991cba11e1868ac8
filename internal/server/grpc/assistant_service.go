package grpc

import (
	"context"
	"io"
	"time"

	"github.com/emmett/aria/internal/audio"
	"github.com/emmett/aria/internal/speaker"
	"github.com/emmett/aria/internal/stt"
)

// AssistantService implements the gRPC assistant service
type AssistantService struct {
	engine     stt.Engine
	identifier *speaker.Identifier
	sampleRate int
}

// NewAssistantService creates a new assistant service. identifier may be nil
// when speaker recognition is not configured.
func NewAssistantService(engine stt.Engine, identifier *speaker.Identifier, sampleRate int) *AssistantService {
	return &AssistantService{engine: engine, identifier: identifier, sampleRate: sampleRate}
}

// AudioChunk represents incoming audio data
type AudioChunk struct {
	Data       []byte
	SampleRate int32
	Channels   int32
}

// UtteranceResult represents a transcribed, speaker-attributed utterance
type UtteranceResult struct {
	Text              string
	Confidence        float32
	SpeakerName       string
	SpeakerSimilarity float32
	SpeakerIdentified bool
	TimestampMs       int64
}

// TranscribeStream is the streaming interface for utterance transcription
type TranscribeStream interface {
	Send(*UtteranceResult) error
	Recv() (*AudioChunk, error)
	Context() context.Context
}

// Transcribe collects one utterance's audio from the stream and replies with
// the transcript and speaker attribution when the client closes its side.
// This will be updated to use generated proto types once protoc runs.
func (s *AssistantService) Transcribe(stream TranscribeStream) error {
	ctx := stream.Context()

	var pcm []byte
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		pcm = append(pcm, chunk.Data...)
	}

	samples := audio.DecodeS16LE(pcm)

	result := &UtteranceResult{TimestampMs: time.Now().UnixMilli()}

	tr, err := s.engine.Transcribe(ctx, samples)
	if err != nil {
		return err
	}
	result.Text = tr.Text
	result.Confidence = float32(tr.Confidence)

	if s.identifier != nil {
		match, err := s.identifier.Identify(ctx, samples)
		if err == nil {
			result.SpeakerSimilarity = float32(match.Similarity)
			result.SpeakerIdentified = match.Identified
			if match.Identified {
				result.SpeakerName = match.Name
			}
		}
	}

	return stream.Send(result)
}
