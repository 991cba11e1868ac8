// Package grpc exposes batch transcription with speaker attribution over
// gRPC for other local processes.
package grpc

import (
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/emmett/aria/internal/speaker"
	"github.com/emmett/aria/internal/store"
	"github.com/emmett/aria/internal/stt"
	"go.uber.org/zap"
)

// Server wraps the gRPC server and services
type Server struct {
	grpcServer *grpc.Server
	sttEngine  stt.Engine
	extractor  speaker.Extractor
	voiceStore *store.Badger
	port       int
	log        *zap.Logger
}

// Config holds server configuration
type Config struct {
	Port                 int
	STTModelPath         string
	SpeakerModelPath     string
	VoicePrintDir        string
	RecognitionThreshold float64
	SampleRate           int
}

// NewServer creates a new gRPC server. Speaker recognition is optional: an
// empty SpeakerModelPath serves transcription only.
func NewServer(cfg Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}

	engine, err := stt.NewVoskEngine(stt.Config{
		ModelPath:  cfg.STTModelPath,
		SampleRate: cfg.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize STT engine: %w", err)
	}

	s := &Server{
		grpcServer: grpc.NewServer(),
		sttEngine:  engine,
		port:       cfg.Port,
		log:        log,
	}

	var identifier *speaker.Identifier
	if cfg.SpeakerModelPath != "" {
		extractor, err := speaker.NewONNXExtractor(cfg.SpeakerModelPath, cfg.SampleRate, log)
		if err != nil {
			engine.Close()
			return nil, fmt.Errorf("failed to load speaker model: %w", err)
		}
		st, err := store.Open(store.Options{Dir: cfg.VoicePrintDir, Logger: log})
		if err != nil {
			extractor.Close()
			engine.Close()
			return nil, err
		}
		registry, err := speaker.NewRegistry(st, log)
		if err != nil {
			st.Close()
			extractor.Close()
			engine.Close()
			return nil, err
		}
		s.extractor = extractor
		s.voiceStore = st
		identifier = speaker.NewIdentifier(extractor, registry,
			speaker.NewMatcher(cfg.RecognitionThreshold), log)
	}

	// Register services
	svc := NewAssistantService(engine, identifier, cfg.SampleRate)
	RegisterAssistantServer(s.grpcServer, svc)

	return s, nil
}

// Start starts the gRPC server
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	s.log.Info("gRPC server listening", zap.Int("port", s.port))
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
	s.sttEngine.Close()
	if s.extractor != nil {
		s.extractor.Close()
	}
	if s.voiceStore != nil {
		s.voiceStore.Close()
	}
}

// RegisterAssistantServer is a placeholder until proto is generated
func RegisterAssistantServer(s *grpc.Server, srv *AssistantService) {
	// Will be replaced by generated code: ariapb.RegisterAssistantServer(s, srv)
}
