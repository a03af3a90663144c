package main

import (
	"fmt"
	"io"
	"os"

	"github.com/olivier-w/climpviz/internal/settings"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logFile    string
	logLevel   string
	silent     bool
)

var rootCmd = &cobra.Command{
	Use:   "climpviz [file]",
	Short: "Audio-reactive visualizer for the terminal, with video export",
	Long: `climpviz plays an audio file and renders an audio-reactive effect into the
terminal. The same effect can be baked into a video muxed with the source audio,
either from the preview ("e") or headless with "climpviz export".

Without a file argument a browser over the current directory is shown.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPreview,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/climpviz/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the preview runs")
	rootCmd.Flags().BoolVar(&silent, "silent", false, "preview without audio output")

	rootCmd.AddCommand(exportCmd, effectsCmd)
}

// loadConfig reads --config, or the first default config file that exists.
func loadConfig(log logrus.FieldLogger) (*settings.Config, error) {
	cfg := settings.DefaultConfig()
	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		log.WithField("path", configPath).Info("config loaded")
		return cfg, nil
	}
	path, err := cfg.TryLoadDefault()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if path != "" {
		log.WithField("path", path).Info("config loaded")
	}
	return cfg, nil
}

// newLogger builds the process logger writing to w at --log-level.
func newLogger(w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetLevel(lvl)
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}
