package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Noofbiz/datapipe/config"
	"github.com/Noofbiz/datapipe/dataloader"
	"github.com/Noofbiz/datapipe/datasets"
	"github.com/Noofbiz/datapipe/dist"
	"github.com/Noofbiz/datapipe/logger"
	"github.com/Noofbiz/datapipe/metrics"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "datapipe",
	Short:         "Dataset registry and loader toolkit",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "options.yaml", "options file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// session is what every config-driven command starts from.
type session struct {
	cfg  *config.Config
	info dist.Info
	rec  metrics.Recorder
	log  logger.Logger
}

func newSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	if err := logger.SetFile(cfg.Logging.FileConfig()); err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	log := logger.New("main")
	s := &session{cfg: cfg, info: dist.Current(log), rec: metrics.NopRecorder{}, log: log}
	if cfg.Metrics.PrometheusEnabled {
		rec, err := metrics.NewPromRecorder()
		if err != nil {
			return nil, fmt.Errorf("prom recorder: %w", err)
		}
		s.rec = rec
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.PrometheusAddr, log); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}
	datasets.Default().SetRecorder(s.rec)
	return s, nil
}

// build creates the dataset and loader of one section. Distributed train
// sections read through an EnlargedSampler sized by dataset_enlarge_ratio.
func (s *session) build(sec config.Section) (datasets.Dataset, dataloader.Iterator, error) {
	ds, err := datasets.Create(sec.Options)
	if err != nil {
		return nil, nil, err
	}
	rt := s.cfg.Runtime(s.info)
	rt.Metrics = s.rec
	if sec.Phase == string(dataloader.PhaseTrain) && s.cfg.Dist {
		var extra struct {
			Ratio int `json:"dataset_enlarge_ratio"`
		}
		if err := datasets.Decode(sec.Options, &extra); err != nil {
			return nil, nil, fmt.Errorf("datasets.%s: %w", sec.Key, err)
		}
		sampler, err := dataloader.NewEnlargedSampler(ds.Len(), s.info.WorldSize, s.info.Rank, max(extra.Ratio, 1))
		if err != nil {
			return nil, nil, fmt.Errorf("datasets.%s: %w", sec.Key, err)
		}
		rt.Sampler = sampler
	}
	it, err := dataloader.CreateFromMap(ds, sec.Options, rt)
	if err != nil {
		return nil, nil, fmt.Errorf("datasets.%s: %w", sec.Key, err)
	}
	return ds, it, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
