package dataloader

import (
	"fmt"
	"math/rand"
)

// Sampler decides which dataset indices an epoch visits and in what order.
// A loader with a sampler never shuffles on its own.
type Sampler interface {
	// Indices returns the indices of the given epoch. Calls with the same
	// epoch return the same slice contents.
	Indices(epoch int) []int
	// Len is the length of every Indices result.
	Len() int
}

// EnlargedSampler restricts loading to one replica's share of the dataset
// and virtually enlarges the dataset by an integer ratio, so that short
// datasets do not restart the loader every few iterations.
//
// Each epoch draws a permutation of numSamples*numReplicas positions seeded
// by the epoch, folds it onto the dataset with a modulo and keeps every
// numReplicas-th entry starting at rank.
type EnlargedSampler struct {
	datasetLen  int
	numReplicas int
	rank        int
	numSamples  int
	totalSize   int
}

// NewEnlargedSampler builds a sampler for a dataset of datasetLen examples.
func NewEnlargedSampler(datasetLen, numReplicas, rank, ratio int) (*EnlargedSampler, error) {
	if datasetLen < 1 {
		return nil, fmt.Errorf("enlarged sampler: dataset is empty")
	}
	if numReplicas < 1 {
		return nil, fmt.Errorf("enlarged sampler: num_replicas must be >= 1, got %d", numReplicas)
	}
	if rank < 0 || rank >= numReplicas {
		return nil, fmt.Errorf("enlarged sampler: rank %d out of range [0, %d)", rank, numReplicas)
	}
	if ratio < 1 {
		return nil, fmt.Errorf("enlarged sampler: ratio must be >= 1, got %d", ratio)
	}
	numSamples := (datasetLen*ratio + numReplicas - 1) / numReplicas
	return &EnlargedSampler{
		datasetLen:  datasetLen,
		numReplicas: numReplicas,
		rank:        rank,
		numSamples:  numSamples,
		totalSize:   numSamples * numReplicas,
	}, nil
}

// Indices implements Sampler.
func (s *EnlargedSampler) Indices(epoch int) []int {
	perm := rand.New(rand.NewSource(int64(epoch))).Perm(s.totalSize)
	out := make([]int, 0, s.numSamples)
	for i := s.rank; i < s.totalSize; i += s.numReplicas {
		out = append(out, perm[i]%s.datasetLen)
	}
	return out
}

// Len implements Sampler.
func (s *EnlargedSampler) Len() int { return s.numSamples }
