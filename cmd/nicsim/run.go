package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/nicsim/config"
	"github.com/sarchlab/nicsim/nic"
	"github.com/sarchlab/nicsim/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation.",
	Long: "`run -c config.yaml` builds the platform described by the " +
		"config and runs the host script until it completes.",
	Run: func(cmd *cobra.Command, _ []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			atexit.Fatalf("Error loading config: %v\n", err)
		}

		log, err := cfg.NewLogger(os.Stderr)
		if err != nil {
			atexit.Fatalf("Error creating logger: %v\n", err)
		}

		log.ExitFunc = atexit.Exit

		ctx, stop := signal.NotifyContext(
			cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := run(ctx, cfg, log)
		if err != nil {
			atexit.Fatalf("Simulation failed: %v\n", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"finished at %d ps: %d frames sent, %d received, %d interrupts\n",
			uint64(res.EndTime), res.Stats.FramesSent, res.Stats.FramesReceived,
			res.Interrupts)

		atexit.Exit(0)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringP("config", "c", "", "Config file; defaults apply without one")
	f.String("env", "", "Environment file; .env is used if it exists")
	f.String("trace", "", "Write a message trace to this sqlite database")
	f.String("pcap", "", "Record wire frames to this pcap file")
	f.Int("monitor", -1, "Serve the monitor on this port (0 picks one)")
	f.Bool("open", false, "Open the monitor in a browser")
	f.String("log-level", "", "Log level (panic..trace)")
	f.Uint64("start-ns", 0, "Simulated time the run starts at")
	f.Bool("loopback", false, "Reflect frames back to the NIC")
	f.Bool("demo", false, "Run the built-in loopback scenario")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	f := cmd.Flags()

	envFile, _ := f.GetString("env")

	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}

	if err := config.LoadDotEnv(envFiles...); err != nil {
		return config.Config{}, err
	}

	path, _ := f.GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}

	if f.Changed("trace") {
		cfg.Trace.Enabled = true
		cfg.Trace.Path, _ = f.GetString("trace")
	}

	if f.Changed("pcap") {
		cfg.Pcap, _ = f.GetString("pcap")
	}

	if f.Changed("monitor") {
		cfg.Monitor.Enabled = true
		cfg.Monitor.Port, _ = f.GetInt("monitor")
	}

	if f.Changed("open") {
		cfg.Monitor.OpenBrowser, _ = f.GetBool("open")
	}

	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}

	if f.Changed("start-ns") {
		cfg.StartNs, _ = f.GetUint64("start-ns")
	}

	if f.Changed("loopback") {
		cfg.Wire.Loopback, _ = f.GetBool("loopback")
	}

	if demo, _ := f.GetBool("demo"); demo {
		cfg.Wire.Loopback = true
		cfg.Scenario = runner.LoopbackScenario(demoFrame())
	}

	return cfg, nil
}

// run builds and runs the platform. A protocol violation inside the device
// is logged at fatal level, which exits through atexit.
func run(
	ctx context.Context,
	cfg config.Config,
	log *logrus.Logger,
) (res runner.Result, err error) {
	p, err := runner.Build(cfg, log)
	if err != nil {
		return res, err
	}

	atexit.Register(func() {
		if err := p.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing platform: %v\n", err)
		}
	})

	defer func() {
		v := recover()
		if v == nil {
			return
		}

		pv, ok := nic.AsViolation(v)
		if !ok {
			panic(v)
		}

		log.WithFields(logrus.Fields{
			"kind":    pv.Kind.String(),
			"where":   pv.Where,
			"time_ps": uint64(p.Engine.CurrentTime()),
		}).Fatal(pv.Msg)
	}()

	return p.Run(ctx)
}

func demoFrame() []byte {
	frame := []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x02, 0x00, 0x00, 0x00, 0x00, 0x01,
		0x88, 0xb5,
	}

	for i := 0; len(frame) < 64; i++ {
		frame = append(frame, byte(i))
	}

	return frame
}
