package dataloader

import (
	"context"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
)

// TrainDataset exposes an Iterator as a gomlx train.Dataset.
type TrainDataset struct {
	name string
	it   Iterator
}

var _ train.Dataset = (*TrainDataset)(nil)

// NewTrainDataset wraps it under the given name.
func NewTrainDataset(name string, it Iterator) *TrainDataset {
	return &TrainDataset{name: name, it: it}
}

// Name implements train.Dataset.
func (d *TrainDataset) Name() string { return d.name }

// Reset implements train.Dataset.
func (d *TrainDataset) Reset() { d.it.Reset() }

// Yield implements train.Dataset. It returns io.EOF at the end of an epoch.
func (d *TrainDataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	b, err := d.it.Next(context.Background())
	if err != nil {
		return nil, nil, nil, err
	}
	in, la, err := b.ToTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	inputs = []*tensors.Tensor{in}
	if la != nil {
		labels = []*tensors.Tensor{la}
	}
	return d, inputs, labels, nil
}
