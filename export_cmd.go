package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/olivier-w/climpviz/internal/audio"
	"github.com/olivier-w/climpviz/internal/effect"
	"github.com/olivier-w/climpviz/internal/export"
	"github.com/olivier-w/climpviz/internal/media"
	"github.com/olivier-w/climpviz/internal/settings"
	"github.com/olivier-w/climpviz/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var exportFlags struct {
	output       string
	dir          string
	resolution   string
	fps          int
	quality      int
	effect       string
	color        string
	sensitivity  float64
	noBackground bool
	seed         uint64
	quiet        bool
}

var exportCmd = &cobra.Command{
	Use:   "export <file|playlist>...",
	Short: "Render an effect into a video muxed with the source audio",
	Long: `Export renders the effect over the whole asset at a fixed frame rate and
hands every frame to ffmpeg together with the original audio. Playlists are
expanded and exported one after another. Ctrl+C cancels the running job and
removes its partial output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "List the available effects",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range effect.Names() {
			fam, _ := effect.FamilyOf(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name, fam)
		}
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportFlags.output, "output", "o", "", "output file (single input only; default: suggested name)")
	f.StringVar(&exportFlags.dir, "dir", ".", "directory for suggested output names")
	f.StringVarP(&exportFlags.resolution, "resolution", "r", "", "720p, 1080p, 1440p or 4K")
	f.IntVar(&exportFlags.fps, "fps", 0, "frame rate: 24, 30 or 60")
	f.IntVar(&exportFlags.quality, "quality", 0, "quality 10-100")
	f.StringVarP(&exportFlags.effect, "effect", "e", "", "effect name (see \"climpviz effects\")")
	f.StringVar(&exportFlags.color, "color", "", "effect color as #rrggbb")
	f.Float64Var(&exportFlags.sensitivity, "sensitivity", 0, "audio sensitivity 0.1-3")
	f.BoolVar(&exportFlags.noBackground, "no-background", false, "leave the background transparent")
	f.Uint64Var(&exportFlags.seed, "seed", 0, "particle random seed")
	f.BoolVarP(&exportFlags.quiet, "quiet", "q", false, "no progress bar")
}

// exportSettings overlays the flags the user set on the config defaults.
func exportSettings(cmd *cobra.Command, cfg *settings.Config) (settings.Effect, settings.Export, error) {
	fx := cfg.Effect
	req := cfg.Export
	flags := cmd.Flags()

	if flags.Changed("resolution") {
		r, err := settings.ParseResolution(exportFlags.resolution)
		if err != nil {
			return fx, req, err
		}
		req.Resolution = r
	}
	if flags.Changed("fps") {
		req.FrameRate = exportFlags.fps
	}
	if flags.Changed("quality") {
		req.Quality = exportFlags.quality
	}
	if flags.Changed("no-background") {
		req.IncludeBackground = !exportFlags.noBackground
	}
	if flags.Changed("effect") {
		if _, err := effect.New(exportFlags.effect); err != nil {
			return fx, req, err
		}
		fx.Type = exportFlags.effect
	}
	if flags.Changed("color") {
		fx.Color = exportFlags.color
	}
	if flags.Changed("sensitivity") {
		fx.Sensitivity = exportFlags.sensitivity
	}
	if flags.Changed("seed") {
		fx.Seed = exportFlags.seed
	}
	return fx, req, req.Validate()
}

func runExport(cmd *cobra.Command, args []string) error {
	log, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	fx, req, err := exportSettings(cmd, cfg)
	if err != nil {
		return err
	}

	inputs, err := media.ExpandInputs(args)
	if err != nil {
		return err
	}
	if exportFlags.output != "" && len(inputs) > 1 {
		return fmt.Errorf("--output needs a single input, got %d", len(inputs))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := export.NewPipeline(export.Options{Probe: export.ProbeDuration, Log: log})
	for _, path := range inputs {
		res, err := exportOne(ctx, p, export.Request{
			Effect:      fx,
			Export:      req,
			Analyzer:    cfg.Analyzer,
			Peak:        cfg.Peak,
			ParticleCap: cfg.ParticleCap,
			Output:      exportFlags.output,
			Dir:         exportFlags.dir,
		}, path, log)
		if errors.Is(err, export.ErrCancelled) {
			return errors.New("export cancelled")
		}
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d frames  %s\n",
			res.Path, res.MIME(), res.Frames, util.FormatDuration(res.Duration))
	}
	return nil
}

func exportOne(ctx context.Context, p *export.Pipeline, req export.Request, path string, log logrus.FieldLogger) (export.Result, error) {
	asset, err := audio.Load(path)
	if err != nil {
		return export.Result{}, err
	}
	req.Asset = asset
	log.WithFields(logrus.Fields{"path": path, "duration": asset.Duration()}).Info("asset loaded")

	var bar *progressbar.ProgressBar
	if !exportFlags.quiet {
		bar = progressbar.NewOptions(100,
			progressbar.OptionSetDescription(filepath.Base(path)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		)
	}

	h, err := p.Start(ctx, req, export.Callbacks{
		OnProgress: func(pr export.Progress) {
			if bar != nil {
				_ = bar.Set(pr.Percent)
			}
		},
	})
	if err != nil {
		return export.Result{}, err
	}
	res, err := h.Wait()
	if err != nil && bar != nil {
		_ = bar.Exit()
	}
	return res, err
}
