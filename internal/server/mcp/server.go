// Package mcp exposes the transcription and speaker tools over the Model
// Context Protocol on stdio.
package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/emmett/aria/internal/speaker"
	"github.com/emmett/aria/internal/store"
	"github.com/emmett/aria/internal/stt"
)

type Config struct {
	ServerName           string
	ServerVersion        string
	STTModelPath         string
	SpeakerModelPath     string
	VoicePrintDir        string
	RecognitionThreshold float64
	EnrollmentSamples    int
	ConsistencyFloor     float64
	SampleRate           int
}

type Server struct {
	config     Config
	mcpServer  *sdk.Server
	sttEngine  stt.Engine
	extractor  speaker.Extractor
	voiceStore *store.Badger
	registry   *speaker.Registry
	identifier *speaker.Identifier
	enroller   *speaker.Enroller
	log        *zap.Logger
}

func NewServer(cfg Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	s := &Server{config: cfg, log: log}

	engine, err := stt.NewVoskEngine(stt.Config{
		ModelPath:  cfg.STTModelPath,
		SampleRate: cfg.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize STT engine: %w", err)
	}
	s.sttEngine = engine

	if cfg.SpeakerModelPath != "" {
		if err := s.setupSpeaker(); err != nil {
			s.Stop()
			return nil, err
		}
	}

	// Create MCP server
	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	// Register tools
	s.registerTools()

	return s, nil
}

func (s *Server) setupSpeaker() error {
	extractor, err := speaker.NewONNXExtractor(s.config.SpeakerModelPath, s.config.SampleRate, s.log)
	if err != nil {
		return fmt.Errorf("failed to load speaker model: %w", err)
	}
	st, err := store.Open(store.Options{Dir: s.config.VoicePrintDir, Logger: s.log})
	if err != nil {
		extractor.Close()
		return err
	}
	registry, err := speaker.NewRegistry(st, s.log)
	if err != nil {
		st.Close()
		extractor.Close()
		return err
	}

	s.extractor = extractor
	s.voiceStore = st
	s.registry = registry
	s.identifier = speaker.NewIdentifier(extractor, registry,
		speaker.NewMatcher(s.config.RecognitionThreshold), s.log)
	s.enroller = speaker.NewEnroller(extractor, registry,
		s.config.EnrollmentSamples, s.config.ConsistencyFloor, s.log)
	return nil
}

func (s *Server) Start() error {
	return s.mcpServer.Run(context.Background(), &sdk.StdioTransport{})
}

func (s *Server) Stop() error {
	if s.sttEngine != nil {
		s.sttEngine.Close()
	}
	if s.extractor != nil {
		s.extractor.Close()
	}
	if s.voiceStore != nil {
		s.voiceStore.Close()
	}
	return nil
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "transcribe_audio",
		Description: "Transcribe an utterance (16kHz mono 16-bit PCM) and identify the speaker",
	}, s.handleTranscribeAudio)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "enroll_speaker",
		Description: "Enroll a speaker from multiple audio samples",
	}, s.handleEnrollSpeaker)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_speakers",
		Description: "List enrolled speakers",
	}, s.handleListSpeakers)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "delete_speaker",
		Description: "Delete an enrolled speaker by ID",
	}, s.handleDeleteSpeaker)
}
