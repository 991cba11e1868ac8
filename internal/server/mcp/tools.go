package mcp

import (
	"context"
	"encoding/base64"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/emmett/aria/internal/audio"
)

type TranscribeArgs struct {
	Audio           string `json:"audio" jsonschema:"required,description=Base64-encoded audio data (16kHz mono 16-bit PCM)"`
	IdentifySpeaker bool   `json:"identify_speaker,omitempty" jsonschema:"description=Run speaker identification on the audio (default: false)"`
}

type EnrollArgs struct {
	Name    string   `json:"name" jsonschema:"required,description=Display name for the new speaker"`
	Samples []string `json:"samples" jsonschema:"required,description=Base64-encoded audio samples (16kHz mono 16-bit PCM), one per recording"`
}

type ListSpeakersArgs struct{}

type DeleteSpeakerArgs struct {
	ID int64 `json:"id" jsonschema:"required,description=Numeric ID of the speaker to delete"`
}

func (s *Server) handleTranscribeAudio(ctx context.Context, req *sdk.CallToolRequest, args TranscribeArgs) (*sdk.CallToolResult, any, error) {
	// Decode base64 audio
	audioData, err := base64.StdEncoding.DecodeString(args.Audio)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid base64 audio: %w", err)
	}
	samples := audio.DecodeS16LE(audioData)

	result, err := s.sttEngine.Transcribe(ctx, samples)
	if err != nil {
		return nil, nil, fmt.Errorf("transcription failed: %w", err)
	}

	content := []sdk.Content{
		&sdk.TextContent{Text: result.Text},
		&sdk.TextContent{Text: fmt.Sprintf("Confidence: %.2f", result.Confidence)},
	}

	if args.IdentifySpeaker {
		if s.identifier == nil {
			content = append(content, &sdk.TextContent{Text: "Speaker: recognition not configured"})
		} else if match, err := s.identifier.Identify(ctx, samples); err != nil {
			content = append(content, &sdk.TextContent{Text: fmt.Sprintf("Speaker: unavailable (%v)", err)})
		} else if match.Identified {
			content = append(content, &sdk.TextContent{
				Text: fmt.Sprintf("Speaker: %s (similarity %.2f)", match.Name, match.Similarity)})
		} else {
			content = append(content, &sdk.TextContent{
				Text: fmt.Sprintf("Speaker: unknown (best similarity %.2f)", match.Similarity)})
		}
	}

	return &sdk.CallToolResult{Content: content}, nil, nil
}

func (s *Server) handleEnrollSpeaker(ctx context.Context, req *sdk.CallToolRequest, args EnrollArgs) (*sdk.CallToolResult, any, error) {
	if s.enroller == nil {
		return nil, nil, fmt.Errorf("speaker recognition not configured")
	}

	samples := make([][]float32, 0, len(args.Samples))
	for i, b64 := range args.Samples {
		pcm, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, nil, fmt.Errorf("sample %d: invalid base64 audio: %w", i+1, err)
		}
		samples = append(samples, audio.DecodeS16LE(pcm))
	}

	vp, err := s.enroller.Enroll(ctx, args.Name, samples)
	if err != nil {
		return nil, nil, fmt.Errorf("enrollment failed: %w", err)
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: fmt.Sprintf("Enrolled %s with ID %d", vp.Name, vp.ID)},
		},
	}, nil, nil
}

func (s *Server) handleListSpeakers(ctx context.Context, req *sdk.CallToolRequest, args ListSpeakersArgs) (*sdk.CallToolResult, any, error) {
	if s.registry == nil {
		return nil, nil, fmt.Errorf("speaker recognition not configured")
	}

	prints := s.registry.List()
	content := []sdk.Content{
		&sdk.TextContent{Text: fmt.Sprintf("Enrolled speakers (%d):", len(prints))},
	}
	for _, vp := range prints {
		content = append(content, &sdk.TextContent{
			Text: fmt.Sprintf("- [%d] %s (recognized %d times)", vp.ID, vp.Name, vp.RecognitionCount)})
	}

	return &sdk.CallToolResult{Content: content}, nil, nil
}

func (s *Server) handleDeleteSpeaker(ctx context.Context, req *sdk.CallToolRequest, args DeleteSpeakerArgs) (*sdk.CallToolResult, any, error) {
	if s.registry == nil {
		return nil, nil, fmt.Errorf("speaker recognition not configured")
	}

	if err := s.registry.Remove(args.ID); err != nil {
		return nil, nil, fmt.Errorf("delete failed: %w", err)
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: fmt.Sprintf("Deleted speaker %d", args.ID)},
		},
	}, nil, nil
}
