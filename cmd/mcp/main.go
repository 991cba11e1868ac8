package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/emmett/aria/internal/config"
	"github.com/emmett/aria/internal/models"
	mcpserver "github.com/emmett/aria/internal/server/mcp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	sttModel    = flag.String("model", "", "STT model name (default: vosk-model-small-en-us-0.15)")
	noSpeaker   = flag.Bool("no-speaker", false, "Disable speaker recognition tools")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Aria MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if *sttModel != "" {
		cfg.Models.STT = *sttModel
	}
	if *noSpeaker {
		cfg.Speaker.Enabled = false
	}

	// stdio transport owns stdout; logs go to stderr only
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stderr"}
	log, err := logCfg.Build()
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

	speakerPath := ""
	if cfg.Speaker.Enabled {
		speakerPath = cfg.Models.Speaker
		if speakerPath == "" {
			if p, err := mgr.Path(models.DefaultSpeakerModelName); err == nil {
				speakerPath = p
			}
		}
	}

	server, err := mcpserver.NewServer(mcpserver.Config{
		ServerName:           "aria",
		ServerVersion:        Version,
		STTModelPath:         sttPath,
		SpeakerModelPath:     speakerPath,
		VoicePrintDir:        cfg.Speaker.StoreDir,
		RecognitionThreshold: cfg.Speaker.RecognitionThreshold,
		EnrollmentSamples:    cfg.Speaker.EnrollmentSamples,
		ConsistencyFloor:     cfg.Speaker.ConsistencyFloor,
		SampleRate:           cfg.Audio.SampleRate,
	}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating MCP server: %v\n", err)
		os.Exit(1)
	}
	defer server.Stop()

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
