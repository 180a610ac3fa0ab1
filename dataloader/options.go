package dataloader

import (
	"errors"
	"fmt"

	"github.com/Noofbiz/datapipe/datasets"
)

// Phase is the data-loading mode.
type Phase string

const (
	PhaseTrain Phase = "train"
	PhaseVal   Phase = "val"
	PhaseTest  Phase = "test"
)

// Prefetch modes understood by Create. Only PrefetchCPU changes what Create
// returns; PrefetchCUDA loaders are staged on the device by their consumer.
const (
	PrefetchCPU  = "cpu"
	PrefetchCUDA = "cuda"
)

var (
	// ErrInvalidPhase is returned for a phase other than train, val or test.
	ErrInvalidPhase = errors.New("invalid dataset phase")
	// ErrInvalidOptions is returned for missing or out of range options.
	ErrInvalidOptions = errors.New("invalid loader options")
)

// Options is the loader part of a dataset configuration section.
type Options struct {
	Phase Phase `json:"phase"`
	// BatchSizePerGPU and NumWorkerPerGPU are required for the train phase.
	BatchSizePerGPU int  `json:"batch_size_per_gpu"`
	NumWorkerPerGPU int  `json:"num_worker_per_gpu"`
	PinMemory       bool `json:"pin_memory"`
	// PrefetchMode is "", "cpu" or "cuda".
	PrefetchMode string `json:"prefetch_mode"`
	// NumPrefetchQueue is the cpu prefetch queue depth, 1 when unset.
	NumPrefetchQueue int `json:"num_prefetch_queue"`
}

// ParseOptions decodes the loader keys of raw. Keys belonging to the
// dataset itself are ignored.
func ParseOptions(raw map[string]any) (Options, error) {
	opts := Options{NumPrefetchQueue: 1}
	if err := datasets.Decode(datasets.Options(raw), &opts); err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if opts.Phase == PhaseTrain {
		for _, key := range []string{"batch_size_per_gpu", "num_worker_per_gpu"} {
			if _, ok := raw[key]; !ok {
				return Options{}, fmt.Errorf("%w: %s is required for the train phase", ErrInvalidOptions, key)
			}
		}
	}
	return opts, opts.Validate()
}

// Validate checks the phase and, for training, the per-device sizes.
func (o Options) Validate() error {
	switch o.Phase {
	case PhaseTrain:
		if o.BatchSizePerGPU < 1 {
			return fmt.Errorf("%w: batch_size_per_gpu must be >= 1, got %d", ErrInvalidOptions, o.BatchSizePerGPU)
		}
		if o.NumWorkerPerGPU < 0 {
			return fmt.Errorf("%w: num_worker_per_gpu must be >= 0, got %d", ErrInvalidOptions, o.NumWorkerPerGPU)
		}
	case PhaseVal, PhaseTest:
	default:
		return fmt.Errorf("%w: wrong dataset phase: %s. Supported ones are 'train', 'val' and 'test'", ErrInvalidPhase, o.Phase)
	}
	if o.NumPrefetchQueue < 0 {
		return fmt.Errorf("%w: num_prefetch_queue must be >= 0, got %d", ErrInvalidOptions, o.NumPrefetchQueue)
	}
	return nil
}
