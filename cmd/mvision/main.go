// mvision - real-time object detection on an industrial camera feed
//
// Grabs frames, runs a Darknet/ONNX detector, draws the boxes and shows,
// records and serves the annotated stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-mvision/internal/config"
	mlog "github.com/teslashibe/go-mvision/internal/log"
	"github.com/teslashibe/go-mvision/pkg/camera"
	"github.com/teslashibe/go-mvision/pkg/debug"
	"github.com/teslashibe/go-mvision/pkg/inference"
	"github.com/teslashibe/go-mvision/pkg/pipeline"
	"github.com/teslashibe/go-mvision/pkg/record"
	"github.com/teslashibe/go-mvision/pkg/web"
	"golang.org/x/sync/errgroup"
)

// options are command line overrides applied on top of the config file.
type options struct {
	configPath   string
	cameraDev    string
	features     string
	saveFeatures string
	webAddr      string
	headless     bool
	record       bool
	debug        bool
	debugTiming  bool
	threshold    float64
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	level := cfg.Log.Level
	if opts.debug {
		level = "debug"
	}
	mlog.InitWithFile(level, cfg.Log.FileOptions())
	debug.Enabled, debug.Timing = opts.debug, opts.debugTiming

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, opts.saveFeatures); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

// parseFlags parses command line flags.
func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Path to mvision.yaml (defaults only when empty)")
	flag.StringVar(&o.cameraDev, "camera", "", `Camera device: index, URL or file; "mock" for a synthetic camera`)
	flag.StringVar(&o.features, "features", "", "Camera feature file to load instead of the startup parameters")
	flag.StringVar(&o.saveFeatures, "save-features", "", "Write the camera state to this file on exit")
	flag.StringVar(&o.webAddr, "web", "", "Serve the dashboard on this address (e.g. :8080)")
	flag.BoolVar(&o.headless, "headless", false, "Do not open a preview window")
	flag.BoolVar(&o.record, "record", false, "Record the annotated stream")
	flag.BoolVar(&o.debug, "debug", false, "Enable verbose debug logging")
	flag.BoolVar(&o.debugTiming, "debug-timing", false, "Print per-frame inference timing")
	flag.Float64Var(&o.threshold, "threshold", 0, "Confidence threshold in (0,1); overrides the config")
	flag.Parse()
	return o
}

func (o options) apply(cfg *config.Config) {
	switch o.cameraDev {
	case "":
	case "mock":
		cfg.Camera.Backend = camera.BackendMock
	default:
		cfg.Camera.Device = o.cameraDev
	}
	if o.features != "" {
		cfg.Camera.FeatureFile = o.features
	}
	if o.webAddr != "" {
		cfg.Web.Enabled = true
		cfg.Web.Addr = o.webAddr
	}
	if o.headless {
		cfg.Pipeline.ShowWindow = false
	}
	if o.record {
		cfg.Record.Enabled = true
	}
	if o.threshold != 0 {
		cfg.Detector.Threshold = float32(o.threshold)
	}
}

func run(ctx context.Context, cfg config.Config, saveFeatures string) error {
	logger := mlog.L()

	labels, err := cfg.Detector.LoadLabels()
	if err != nil {
		return err
	}

	det, err := inference.Open(cfg.Model, cfg.DecoderConfig(labels))
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer det.Close()
	logger.Info("model loaded", "format", cfg.Model.Format, "weights", cfg.Model.ModelPath, "labels", labels.Len())

	cam, err := camera.Open(cfg.Camera, logger)
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer cam.Close()

	if err := cam.Start(); err != nil {
		return err
	}
	describeCamera(cam)

	p := pipeline.New(cam, det, logger)
	if cfg.Pipeline.ShowWindow {
		p.AddSink(pipeline.NewWindowSink(cfg.Pipeline.WindowName, p.TogglePause))
		fmt.Println("Press ESC to exit, space to pause.")
	}
	if cfg.Record.Enabled {
		p.AddSink(pipeline.NewRecorderSink(func(size image.Point) (record.Recorder, error) {
			rec, err := record.Open(ctx, cfg.Record, size)
			if err == nil {
				logger.Info("recording", "backend", cfg.Record.Backend, "size", size)
			}
			return rec, err
		}))
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	if cfg.Web.Enabled {
		srv := web.NewServer(cfg.Web, cam, p, labels, logger)
		p.AddSink(pipeline.NewPublishSink(srv, cfg.Pipeline.PublishInterval, cfg.Pipeline.JPEGQuality))

		g.Go(func() error { return srv.Start(gctx) })
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown()
		})
	}

	// HighGUI wants the main goroutine
	runErr := p.Run(gctx)
	stop()
	webErr := g.Wait()

	if saveFeatures != "" {
		if err := cam.SaveFeatures(saveFeatures); err != nil {
			logger.Warn("could not save camera features", "error", err)
		}
	}

	stats := p.Stats()
	logger.Info("done", "frames", stats.Frames, "timeouts", stats.Timeouts)
	return errors.Join(runErr, ignoreCanceled(webErr))
}

// describeCamera logs the startup camera state.
func describeCamera(cam *camera.Controller) {
	cam.GainMode(true)
	cam.Gain(true)
	cam.ExposureMode(true)
	cam.ExposureTime(true)
	cam.FrameRate(true)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment: %s, %s, %s, %s, %s, %s, %s\n",
			config.EnvModelCfg, config.EnvModelWeights, config.EnvLabels,
			config.EnvThreshold, config.EnvCamera, config.EnvWebPort, config.EnvLogLevel)
	}
}
