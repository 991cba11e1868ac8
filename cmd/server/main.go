package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/emmett/aria/internal/config"
	"github.com/emmett/aria/internal/models"
	grpcserver "github.com/emmett/aria/internal/server/grpc"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	port        = flag.Int("port", 50051, "gRPC server port")
	sttModel    = flag.String("model", "", "STT model name (default: vosk-model-small-en-us-0.15)")
	noSpeaker   = flag.Bool("no-speaker", false, "Disable speaker recognition")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Aria gRPC Server v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	fmt.Printf("Aria gRPC Server v%s (commit: %s)\n", Version, GitCommit)

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if *sttModel != "" {
		cfg.Models.STT = *sttModel
	}
	if *noSpeaker {
		cfg.Speaker.Enabled = false
	}

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	mgr, err := models.NewManager(cfg.Models.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sttName := cfg.Models.STT
	if sttName == "" {
		sttName = models.DefaultSTTModelName
	}
	sttPath, err := mgr.Path(sttName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving STT model: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Using model: %s\n", sttName)

	speakerPath := ""
	if cfg.Speaker.Enabled {
		speakerPath = cfg.Models.Speaker
		if speakerPath == "" {
			if p, err := mgr.Path(models.DefaultSpeakerModelName); err == nil {
				speakerPath = p
			} else {
				fmt.Fprintf(os.Stderr, "Warning: speaker model unavailable, recognition disabled: %v\n", err)
			}
		}
	}

	server, err := grpcserver.NewServer(grpcserver.Config{
		Port:                 *port,
		STTModelPath:         sttPath,
		SpeakerModelPath:     speakerPath,
		VoicePrintDir:        cfg.Speaker.StoreDir,
		RecognitionThreshold: cfg.Speaker.RecognitionThreshold,
		SampleRate:           cfg.Audio.SampleRate,
	}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		server.Stop()
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
