package datasets

import (
	"fmt"
	"math/rand"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Batch is a collated group of examples.
type Batch struct {
	// Indices are the dataset indices the examples were read from.
	Indices []int
	Inputs  [][]float32
	Labels  [][]float32
	// Pinned is set when the loader was configured with pin_memory. Consumers
	// that stage batches on an accelerator use it as a hint.
	Pinned bool
}

// Size returns the number of examples in the batch.
func (b Batch) Size() int { return len(b.Inputs) }

// LoadBatch reads the examples at indices, through Batcher when the dataset
// implements it. Datasets that implement Augmenter then transform every
// example with rng; a nil rng skips augmentation.
func LoadBatch(ds Dataset, indices []int, rng *rand.Rand) (Batch, error) {
	b := Batch{Indices: indices}
	if bat, ok := ds.(Batcher); ok {
		in, la, err := bat.Batch(indices)
		if err != nil {
			return Batch{}, err
		}
		b.Inputs, b.Labels = in, la
	} else {
		b.Inputs = make([][]float32, len(indices))
		b.Labels = make([][]float32, len(indices))
		for i, idx := range indices {
			in, la, err := ds.Example(idx)
			if err != nil {
				return Batch{}, err
			}
			b.Inputs[i], b.Labels[i] = in, la
		}
	}
	if aug, ok := ds.(Augmenter); ok && rng != nil {
		for i := range b.Inputs {
			aug.Augment(b.Inputs[i], b.Labels[i], rng)
		}
	}
	return b, nil
}

// BatchFlat stores a batch in flat contiguous buffers
type BatchFlat struct {
	Inputs    []float32
	Labels    []float32
	BatchSize int
	InputDim  int
	LabelDim  int
}

// Flat flattens the batch into contiguous buffers. Every example must have
// the same input and label dimensions.
func (b Batch) Flat() (*BatchFlat, error) {
	inputs, labels := b.Inputs, b.Labels
	if len(inputs) != len(labels) {
		return nil, fmt.Errorf("inputs and labels batch sizes don't match: %d != %d", len(inputs), len(labels))
	}
	if len(inputs) == 0 {
		return &BatchFlat{}, nil
	}

	batchSize := len(inputs)
	inputDim := len(inputs[0])
	labelDim := len(labels[0])

	flatInputs := make([]float32, batchSize*inputDim)
	flatLabels := make([]float32, batchSize*labelDim)

	for i := range batchSize {
		if len(inputs[i]) != inputDim {
			return nil, fmt.Errorf("inconsistent input dimensions at example %d: expected %d, got %d",
				i, inputDim, len(inputs[i]))
		}
		if len(labels[i]) != labelDim {
			return nil, fmt.Errorf("inconsistent label dimensions at example %d: expected %d, got %d",
				i, labelDim, len(labels[i]))
		}
		copy(flatInputs[i*inputDim:], inputs[i])
		copy(flatLabels[i*labelDim:], labels[i])
	}

	return &BatchFlat{
		Inputs:    flatInputs,
		Labels:    flatLabels,
		BatchSize: batchSize,
		InputDim:  inputDim,
		LabelDim:  labelDim,
	}, nil
}

// ToTensors converts the batch into gomlx tensors shaped [batch, dim]. The
// labels tensor is nil when the dataset carries no labels.
func (b Batch) ToTensors() (inputs *tensors.Tensor, labels *tensors.Tensor, err error) {
	flat, err := b.Flat()
	if err != nil {
		return nil, nil, err
	}
	if flat.BatchSize == 0 || flat.InputDim == 0 {
		return nil, nil, fmt.Errorf("cannot convert empty batch to tensors")
	}
	in := make([][]float32, flat.BatchSize)
	for i := range flat.BatchSize {
		in[i] = flat.Inputs[i*flat.InputDim : (i+1)*flat.InputDim]
	}
	inputs = tensors.FromAnyValue(in)
	if flat.LabelDim > 0 {
		la := make([][]float32, flat.BatchSize)
		for i := range flat.BatchSize {
			la[i] = flat.Labels[i*flat.LabelDim : (i+1)*flat.LabelDim]
		}
		labels = tensors.FromAnyValue(la)
	}
	return inputs, labels, nil
}
