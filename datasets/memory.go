package datasets

import "fmt"

// MemoryConfig configures a MemoryDataset with inline data.
type MemoryConfig struct {
	Inputs [][]float32 `json:"inputs"`
	// Labels is optional; when present it must match Inputs in length.
	Labels [][]float32 `json:"labels"`
}

// MemoryDataset serves examples held in memory.
type MemoryDataset struct {
	inputs [][]float32
	labels [][]float32
}

func init() {
	Register("MemoryDataset", func(opts Options) (Dataset, error) {
		var cfg MemoryConfig
		if err := Decode(opts, &cfg); err != nil {
			return nil, fmt.Errorf("decode MemoryDataset options: %w", err)
		}
		return NewMemoryDataset(cfg.Inputs, cfg.Labels)
	})
}

// NewMemoryDataset wraps inputs and labels. labels may be nil.
func NewMemoryDataset(inputs, labels [][]float32) (*MemoryDataset, error) {
	if labels != nil && len(labels) != len(inputs) {
		return nil, fmt.Errorf("memory dataset: %d inputs but %d labels", len(inputs), len(labels))
	}
	return &MemoryDataset{inputs: inputs, labels: labels}, nil
}

// Len returns the number of examples.
func (m *MemoryDataset) Len() int { return len(m.inputs) }

// Example returns copies of the stored example.
func (m *MemoryDataset) Example(i int) ([]float32, []float32, error) {
	if i < 0 || i >= len(m.inputs) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", i, len(m.inputs))
	}
	in := append([]float32(nil), m.inputs[i]...)
	if m.labels == nil {
		return in, nil, nil
	}
	return in, append([]float32(nil), m.labels[i]...), nil
}
