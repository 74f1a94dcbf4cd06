// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seqclu/seqclu-pv/clu"
	"github.com/seqclu/seqclu-pv/clu/trace"
	"github.com/seqclu/seqclu-pv/clu/workload"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "seqclu-pv",
	Short: "Online sequence clustering with prototype voting",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the clustering engine against a configured stream source",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := LoadRunConfig(configPath)
		if err != nil {
			logrus.Fatalf("loading config: %v", err)
		}

		source, err := buildSource(cfg.Source)
		if err != nil {
			logrus.Fatalf("building stream source: %v", err)
		}

		engineCfg := cfg.Engine.ToClu()
		logrus.Infof("starting run: K=%d P=%d R=%d B=%d source=%s",
			engineCfg.K, engineCfg.P, engineCfg.R, engineCfg.B, cfg.Source.Kind)

		clusterer, err := clu.NewClusterer(engineCfg, &clu.DTWDistance{}, clu.XXHash64{}, clu.LinearPrototypeValue{Ratio: engineCfg.PrototypeValueRatio}, source)
		if err != nil {
			logrus.Fatalf("constructing clusterer: %v", err)
		}

		if trace.IsValidLevel(cfg.Trace.Level) && trace.Level(cfg.Trace.Level) == trace.LevelDecisions {
			clusterer.SetTracer(trace.NewRecorder(trace.Config{Level: trace.LevelDecisions}))
		}

		scheduler := clu.NewScheduler(clusterer)
		scheduler.Run()

		logrus.Infof("run complete: tick=%d fully_processed=%d labels=%d",
			clusterer.Tick(), clusterer.NumFullyProcessed(), len(clusterer.FinalLabels()))
	},
}

func buildSource(cfg SourceConfig) (clu.StreamSource, error) {
	switch cfg.Kind {
	case "", "generate":
		return workload.NewGenerator(workload.GeneratorSpec{
			Seed:           cfg.Seed,
			NumClasses:     cfg.NumClasses,
			Dimensions:     cfg.Dimensions,
			SequenceLen:    cfg.SequenceLen,
			TotalSequences: cfg.TotalSequences,
			MaxPerTick:     cfg.MaxPerTick,
			StepScale:      cfg.StepScale,
			Noise:          cfg.Noise,
		})
	case "replay":
		file, err := os.Open(cfg.ReplayFile)
		if err != nil {
			return nil, fmt.Errorf("opening replay file: %w", err)
		}
		defer func() { _ = file.Close() }()
		records, err := workload.LoadReplayCSV(file)
		if err != nil {
			return nil, fmt.Errorf("loading replay trace: %w", err)
		}
		return workload.NewReplaySource(records, clu.XXHash64{}, cfg.MaxPerTick, cfg.Seed)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to the run configuration YAML file (required)")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	_ = runCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(runCmd)
}
