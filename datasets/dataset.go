// Package datasets holds the dataset registry and the built-in dataset types.
//
// A dataset type registers a Factory under its type name from an init
// function. Create then builds a dataset from a configuration mapping whose
// "type" key names the registered factory:
//
//	ds, err := datasets.Create(datasets.Options{
//		"type":    "PredictionDataset",
//		"name":    "week1",
//		"pattern": "assets/prediction/train/*.csv",
//	})
//
// Datasets are index-addressable and read lazily; batching, shuffling and
// worker parallelism live in the dataloader package.
package datasets

import (
	"math/rand"

	"github.com/go-viper/mapstructure/v2"
)

// Dataset is an index-addressable collection of examples.
type Dataset interface {
	Len() int
	Example(i int) (inputs []float32, labels []float32, err error)
}

// Batcher is implemented by datasets that read several examples more
// efficiently than one Example call each.
type Batcher interface {
	Batch(indices []int) (inputs [][]float32, labels [][]float32, err error)
}

// Augmenter is implemented by datasets with random per-example transforms.
// Augment modifies an example that was already read, in place. rng is owned
// by the calling loader worker.
type Augmenter interface {
	Augment(inputs, labels []float32, rng *rand.Rand)
}

// Options is the configuration mapping a dataset is built from. "type" and
// "name" are required; every other key belongs to the dataset type.
type Options map[string]any

// Type returns the registered type name, or "" when absent.
func (o Options) Type() string { return o.str("type") }

// Name returns the human readable dataset label, or "" when absent.
func (o Options) Name() string { return o.str("name") }

func (o Options) str(key string) string {
	v, ok := o[key].(string)
	if !ok {
		return ""
	}
	return v
}

// Decode copies opts into the struct pointed to by out, matching keys to
// json tags. Scalars are converted where unambiguous ("4" -> 4).
func Decode(opts Options, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(opts))
}
