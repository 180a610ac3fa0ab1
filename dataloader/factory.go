package dataloader

import (
	"fmt"

	"github.com/Noofbiz/datapipe/datasets"
	"github.com/Noofbiz/datapipe/dist"
	"github.com/Noofbiz/datapipe/logger"
	"github.com/Noofbiz/datapipe/metrics"
)

// Runtime is the per-call context Create sizes a loader against.
type Runtime struct {
	// NumDevices is the local accelerator count. Zero means cpu only and
	// counts as one device.
	NumDevices int
	// Distributed selects per-process sizing: each process already owns
	// exactly one device.
	Distributed bool
	// Sampler, when set, replaces shuffling for the train phase.
	Sampler Sampler
	// Seed enables deterministic worker seeding for the train phase.
	Seed *int64
	Dist dist.Info

	Metrics metrics.Recorder
	Logger  logger.Logger
}

var defaultLog = logger.New("dataloader")

// Create builds the loader for ds as described by opts.
//
// For the train phase a distributed run uses the per-device batch size and
// worker count directly, a local run multiplies both by the device count.
// Training batches are shuffled unless rt.Sampler is set and the trailing
// partial batch is dropped. val and test read one example at a time, in
// order, without workers.
//
// A "cpu" prefetch mode wraps the loader in a PrefetchLoader.
func Create(ds datasets.Dataset, opts Options, rt Runtime) (Iterator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log := defaultLog
	if rt.Logger != nil {
		log = rt.Logger
	}

	cfg := Config{
		PinMemory: opts.PinMemory,
		Phase:     string(opts.Phase),
		Metrics:   rt.Metrics,
	}
	switch opts.Phase {
	case PhaseTrain:
		if rt.Distributed {
			cfg.BatchSize = opts.BatchSizePerGPU
			cfg.NumWorkers = opts.NumWorkerPerGPU
		} else {
			multiplier := max(rt.NumDevices, 1)
			cfg.BatchSize = opts.BatchSizePerGPU * multiplier
			cfg.NumWorkers = opts.NumWorkerPerGPU * multiplier
		}
		cfg.Sampler = rt.Sampler
		cfg.Shuffle = rt.Sampler == nil
		cfg.DropLast = true
		if rt.Seed != nil {
			cfg.Seed = rt.Seed
			cfg.WorkerInit = SeedWorkers(cfg.NumWorkers, rt.Dist.Rank, *rt.Seed)
		}
	case PhaseVal, PhaseTest:
		cfg.BatchSize = 1
	}

	if opts.PrefetchMode == PrefetchCPU {
		depth := max(opts.NumPrefetchQueue, 1)
		log.Infof("Use cpu prefetch dataloader: num_prefetch_queue = %d", depth)
		return NewPrefetchLoader(ds, cfg, depth)
	}
	return NewLoader(ds, cfg)
}

// CreateFromMap decodes the loader keys of raw and calls Create.
func CreateFromMap(ds datasets.Dataset, raw map[string]any, rt Runtime) (Iterator, error) {
	opts, err := ParseOptions(raw)
	if err != nil {
		return nil, fmt.Errorf("loader options: %w", err)
	}
	return Create(ds, opts, rt)
}
