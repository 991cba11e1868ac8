package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/emmett/aria/internal/app"
	"github.com/emmett/aria/internal/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile     = flag.String("config", "", "Path to configuration file (default: ~/.ariarc or /etc/aria/config.yaml)")
	listModels     = flag.Bool("list-models", false, "List all available models for download")
	listDownloaded = flag.Bool("list-downloaded", false, "List all downloaded models")
	downloadModel  = flag.String("download-model", "", "Download a specific model by name")
	sttModel       = flag.String("model", "", "Use a specific STT model (default: vosk-model-small-en-us-0.15)")
	outputFormat   = flag.String("format", "", "Output format: console, json, text")
	outputFile     = flag.String("output", "", "Output file (default: stdout)")
	sensitivity    = flag.Float64("sensitivity", 0, "VAD energy threshold (0-1, lower=more sensitive)")
	silenceTimeout = flag.Int("silence-timeout", 0, "Milliseconds of silence before an utterance is finalized")
	audioDevice    = flag.String("device", "", "Audio input device name (use -list-devices to see available devices)")
	listDevices    = flag.Bool("list-devices", false, "List all available audio input devices")
	noSpeaker      = flag.Bool("no-speaker", false, "Disable speaker recognition")
	enrollName     = flag.String("enroll", "", "Enroll a new speaker with the given name")
	listSpeakers   = flag.Bool("list-speakers", false, "List enrolled speakers")
	deleteSpeaker  = flag.String("delete-speaker", "", "Delete an enrolled speaker by ID or name")
	autoDownload   = flag.Bool("auto-download", false, "Automatically download missing default models")
	verbose        = flag.Bool("verbose", false, "Enable debug logging")
	showVersion    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Aria v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	applyFlags(cfg)

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *listDevices {
		dm := app.NewDeviceManager()
		if err := dm.ListDevices(); err != nil {
			os.Exit(1)
		}
		return
	}

	mgr, err := app.NewModelManager(cfg.Models.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *listModels:
		exitOnErr(mgr.ListModels())
		return
	case *listDownloaded:
		exitOnErr(mgr.ListDownloaded())
		return
	case *downloadModel != "":
		exitOnErr(mgr.Download(*downloadModel))
		return
	}

	if *autoDownload {
		exitOnErr(mgr.EnsureDefaults(cfg.Speaker.Enabled))
	}

	exitOnErr(run(cfg, log))
}

// applyFlags overlays explicitly set flags on the loaded configuration.
func applyFlags(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["model"] {
		cfg.Models.STT = *sttModel
	}
	if flagsSet["format"] {
		cfg.Output.Format = *outputFormat
	}
	if flagsSet["output"] {
		cfg.Output.File = *outputFile
	}
	if flagsSet["sensitivity"] {
		cfg.VAD.Sensitivity = *sensitivity
	}
	if flagsSet["silence-timeout"] {
		cfg.VAD.SilenceTimeoutMs = *silenceTimeout
	}
	if flagsSet["device"] {
		cfg.Audio.Device = *audioDevice
	}
	if *noSpeaker {
		cfg.Speaker.Enabled = false
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	assistant, err := app.NewAssistant(cfg, log)
	if err != nil {
		return err
	}
	defer assistant.Close()

	switch {
	case *listSpeakers:
		return assistant.ListSpeakers()
	case *deleteSpeaker != "":
		return assistant.DeleteSpeaker(*deleteSpeaker)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping...")
		cancel()
	}()

	if *enrollName != "" {
		return assistant.RunEnrollment(ctx, *enrollName)
	}
	return assistant.Run(ctx)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
