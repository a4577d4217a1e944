package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/nbody/engine"
	"github.com/spaghettifunk/nbody/engine/assets"
	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/platform"
	"github.com/spaghettifunk/nbody/engine/renderer/metadata"
	"github.com/spaghettifunk/nbody/engine/renderer/vulkan"
	"github.com/spaghettifunk/nbody/engine/report"
	"github.com/spaghettifunk/nbody/engine/simulation"
)

var (
	vendor           string        // Preferred GPU vendor
	particles        uint32        // Number of simulated particles
	mode             string        // Buffering mode
	duration         time.Duration // Experiment length, zero runs until the window closes
	minutes          float64       // Experiment length in minutes
	seed             uint64        // Seed of the initial particle field
	shaderDir        string        // Directory holding the compiled shaders
	reportDir        string        // Directory receiving run reports
	validation       bool          // Enable the Vulkan validation layer
	timestamps       bool          // Time the compute dispatch on the device
	throttlePresent  bool          // Wait for the present queue before dispatching compute
	recordEveryFrame bool          // Re-record compute commands on every dispatch
	acquireTimeout   time.Duration // Presentation image acquire timeout
	width            uint32        // Window width
	height           uint32        // Window height
)

// runCmd opens a window and runs one simulation
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the particle simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
		defer stop()
		return runSimulation(ctx, cmd, cfg)
	},
}

// loadConfig reads the configuration file, if any, and applies the flags
// set on the command line on top of it.
func loadConfig(cmd *cobra.Command) (*engine.ApplicationConfig, error) {
	cfg := engine.DefaultApplicationConfig()
	if configPath != "" {
		var err error
		if cfg, err = engine.LoadApplicationConfig(configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("vendor") {
		cfg.Vendor = vendor
	}
	if flags.Changed("particles") {
		cfg.Simulation.ParticleCount = particles
	}
	if flags.Changed("mode") {
		m, err := metadata.ParseBufferingMode(mode)
		if err != nil {
			return nil, err
		}
		cfg.Simulation.Mode = m
	}
	if flags.Changed("minutes") {
		cfg.Simulation.Duration = engine.Duration(time.Duration(minutes * float64(time.Minute)))
	}
	if flags.Changed("duration") {
		cfg.Simulation.Duration = engine.Duration(duration)
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed = seed
	}
	if flags.Changed("shaders") {
		cfg.ShaderDir = shaderDir
	}
	if flags.Changed("reports") {
		cfg.ReportDir = reportDir
	}
	if flags.Changed("validation") {
		cfg.Validation = validation
	}
	if flags.Changed("timestamps") {
		cfg.Timestamps = timestamps
	}
	if flags.Changed("throttle-present") {
		cfg.Simulation.ThrottlePresent = throttlePresent
	}
	if flags.Changed("record-every-frame") {
		cfg.Simulation.RecordEveryFrame = recordEveryFrame
	}
	if flags.Changed("acquire-timeout") {
		cfg.Simulation.AcquireTimeout = engine.Duration(acquireTimeout)
	}
	if flags.Changed("width") {
		cfg.StartWidth = width
	}
	if flags.Changed("height") {
		cfg.StartHeight = height
	}
	if logLevel == "" {
		if err := core.SetLogLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(ctx context.Context, cmd *cobra.Command, cfg *engine.ApplicationConfig) error {
	vendorID, err := vulkan.VendorID(cfg.Vendor)
	if err != nil {
		return err
	}
	shaders, err := assets.NewShaderStore(cfg.ShaderDir)
	if err != nil {
		return err
	}

	events := core.NewEventBus()
	p := platform.New(events)
	if err := p.Startup(cfg.Name, cfg.StartPosX, cfg.StartPosY, cfg.StartWidth, cfg.StartHeight); err != nil {
		return err
	}

	backend := vulkan.New(vulkan.Config{
		ApplicationName: cfg.Name,
		Validation:      cfg.Validation,
		Vendor:          vendorID,
		Timestamps:      cfg.Timestamps,
		ClearColor:      cfg.ClearColor,
	}, p, shaders)

	sim := cfg.SimulationConfig()
	recorder := report.NewRecorder(report.Run{
		Mode:      sim.Mode.String(),
		Particles: sim.ParticleCount,
		Duration:  sim.Duration,
		Seed:      sim.Seed,
	})

	e, err := engine.New(cfg, engine.Options{
		Platform:  p,
		Events:    events,
		Backend:   backend,
		Shaders:   shaders,
		Observers: simulation.Observers{recorder},
	})
	if err != nil {
		return errors.Join(err, p.Shutdown())
	}
	if err := e.Initialize(); err != nil {
		return errors.Join(err, e.Shutdown())
	}
	recorder.SetDevice(e.DeviceName())

	runErr := e.Run(ctx)
	shutdownErr := e.Shutdown()

	summary := recorder.Summary()
	if err := report.RenderSummary(cmd.OutOrStdout(), summary); err != nil {
		core.LogWarn("failed to render summary: %s", err)
	}
	if cfg.ReportDir != "" && summary.Frames > 0 {
		if _, err := recorder.Write(cfg.ReportDir); err != nil {
			return errors.Join(runErr, shutdownErr, err)
		}
	}
	return errors.Join(runErr, shutdownErr)
}

func init() {
	runCmd.Flags().StringVar(&vendor, "vendor", "", "Preferred GPU vendor (amd, nvidia)")
	runCmd.Flags().Uint32Var(&particles, "particles", 8192, "Number of simulated particles")
	runCmd.Flags().StringVar(&mode, "mode", "sync", "Buffering mode (sync, transfer, double)")
	runCmd.Flags().DurationVar(&duration, "duration", 0, "Experiment length, 0 runs until the window is closed")
	runCmd.Flags().Float64Var(&minutes, "minutes", 0, "Experiment length in minutes")
	runCmd.Flags().Uint64Var(&seed, "seed", 1, "Seed of the initial particle field")
	runCmd.Flags().StringVar(&shaderDir, "shaders", "assets/shaders", "Directory holding the compiled SPIR-V shaders")
	runCmd.Flags().StringVar(&reportDir, "reports", "", "Directory receiving the CSV report and metrics of the run")
	runCmd.Flags().BoolVar(&validation, "validation", false, "Enable the Vulkan validation layer")
	runCmd.Flags().BoolVar(&timestamps, "timestamps", true, "Time the compute dispatch with GPU timestamps")
	runCmd.Flags().BoolVar(&throttlePresent, "throttle-present", true, "Wait for the present queue to go idle before dispatching compute")
	runCmd.Flags().BoolVar(&recordEveryFrame, "record-every-frame", false, "Re-record the compute commands on every dispatch")
	runCmd.Flags().DurationVar(&acquireTimeout, "acquire-timeout", time.Second, "Presentation image acquire timeout")
	runCmd.Flags().Uint32Var(&width, "width", 1280, "Window width")
	runCmd.Flags().Uint32Var(&height, "height", 720, "Window height")
	runCmd.MarkFlagsMutuallyExclusive("duration", "minutes")
}
