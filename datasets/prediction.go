package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
)

// Default columns of the landing prediction CSVs.
var (
	DefaultPredictionInputs = []string{"x", "y", "s", "a", "o", "dir"}
	DefaultPredictionLabels = []string{"ball_land_x", "ball_land_y"}
)

// PredictionConfig configures a PredictionDataset.
type PredictionConfig struct {
	// Pattern used to find CSV files (e.g., "assets/kaggle/*.csv"). A
	// directory selects every CSV file inside it.
	Pattern string `json:"pattern"`
	// InputColumns and LabelColumns default to DefaultPredictionInputs and
	// DefaultPredictionLabels.
	InputColumns []string `json:"input_columns"`
	LabelColumns []string `json:"label_columns"`
	// NoiseStd adds N(0, NoiseStd) jitter to inputs when read through a
	// seeded loader worker. Zero disables augmentation.
	NoiseStd float64 `json:"noise_std"`
}

// PredictionDataset lazily loads CSV files matching a pattern. Every row is
// one example: the input columns are the features, the label columns the
// regression target.
type PredictionDataset struct {
	cfg PredictionConfig

	// List of CSV file paths matching the pattern
	csvPaths []string

	inputCols []int
	labelCols []int

	// Cumulative counts for fast index mapping
	cumCounts []int

	// Total number of examples across all files
	totalExamples int
}

func init() {
	Register("PredictionDataset", func(opts Options) (Dataset, error) {
		var cfg PredictionConfig
		if err := Decode(opts, &cfg); err != nil {
			return nil, fmt.Errorf("decode PredictionDataset options: %w", err)
		}
		return NewPredictionDataset(cfg)
	})
}

// NewPredictionDataset creates a new prediction dataset that lazily loads
// CSV files matching cfg.Pattern.
func NewPredictionDataset(cfg PredictionConfig) (*PredictionDataset, error) {
	if cfg.Pattern == "" {
		return nil, fmt.Errorf("prediction dataset: pattern is required")
	}
	if cfg.NoiseStd < 0 {
		return nil, fmt.Errorf("prediction dataset: noise_std must be >= 0, got %g", cfg.NoiseStd)
	}
	if len(cfg.InputColumns) == 0 {
		cfg.InputColumns = DefaultPredictionInputs
	}
	if len(cfg.LabelColumns) == 0 {
		cfg.LabelColumns = DefaultPredictionLabels
	}

	csvPaths, err := FindCSV(cfg.Pattern)
	if err != nil {
		return nil, err
	}

	ds := &PredictionDataset{
		cfg:      cfg,
		csvPaths: csvPaths,
	}

	// The first file determines the column layout.
	colIndex, err := readHeader(csvPaths[0])
	if err != nil {
		return nil, err
	}
	if ds.inputCols, err = resolveColumns(colIndex, cfg.InputColumns); err != nil {
		return nil, err
	}
	if ds.labelCols, err = resolveColumns(colIndex, cfg.LabelColumns); err != nil {
		return nil, err
	}

	if err := ds.buildIndex(); err != nil {
		return nil, err
	}
	return ds, nil
}

// buildIndex counts rows in all files and builds cumulative counts
func (d *PredictionDataset) buildIndex() error {
	d.cumCounts = make([]int, len(d.csvPaths)+1)
	for i, path := range d.csvPaths {
		count, err := countCSVRows(path)
		if err != nil {
			return fmt.Errorf("failed to count rows in %s: %w", path, err)
		}
		d.cumCounts[i+1] = d.cumCounts[i] + count
	}
	d.totalExamples = d.cumCounts[len(d.csvPaths)]
	return nil
}

// Len returns the total number of examples across all CSV files
func (d *PredictionDataset) Len() int {
	return d.totalExamples
}

// Files returns the CSV files backing the dataset.
func (d *PredictionDataset) Files() []string {
	return append([]string(nil), d.csvPaths...)
}

// Example reads a single example by global index
func (d *PredictionDataset) Example(idx int) (inputs []float32, labels []float32, err error) {
	if idx < 0 || idx >= d.totalExamples {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, d.totalExamples)
	}
	ins, las, err := d.Batch([]int{idx})
	if err != nil {
		return nil, nil, err
	}
	return ins[0], las[0], nil
}

// Augment jitters inputs with N(0, NoiseStd) noise drawn from rng.
func (d *PredictionDataset) Augment(inputs, _ []float32, rng *rand.Rand) {
	if d.cfg.NoiseStd == 0 {
		return
	}
	for i := range inputs {
		inputs[i] += float32(rng.NormFloat64() * d.cfg.NoiseStd)
	}
}

// mapGlobalIndex maps a global index to (file index, row index within file)
func (d *PredictionDataset) mapGlobalIndex(globalIdx int) (fileIdx, localIdx int) {
	// cumCounts[i+1] is the first global index past file i.
	fileIdx = sort.SearchInts(d.cumCounts[1:], globalIdx+1)
	return fileIdx, globalIdx - d.cumCounts[fileIdx]
}

type batchSlot struct{ localIdx, batchPos int }

// Batch reads multiple examples by their indices
func (d *PredictionDataset) Batch(indices []int) ([][]float32, [][]float32, error) {
	inputs := make([][]float32, len(indices))
	labels := make([][]float32, len(indices))

	// Group indices by file for more efficient reading
	fileGroups := make(map[int][]batchSlot)
	for batchPos, idx := range indices {
		if idx < 0 || idx >= d.totalExamples {
			return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, d.totalExamples)
		}
		fileIdx, localIdx := d.mapGlobalIndex(idx)
		fileGroups[fileIdx] = append(fileGroups[fileIdx], batchSlot{localIdx, batchPos})
	}

	for fileIdx, group := range fileGroups {
		if err := d.readBatchFromFile(fileIdx, group, inputs, labels); err != nil {
			return nil, nil, err
		}
	}

	return inputs, labels, nil
}

// readBatchFromFile reads multiple examples from a single file
func (d *PredictionDataset) readBatchFromFile(fileIdx int, slots []batchSlot, inputs, labels [][]float32) error {
	file, err := os.Open(d.csvPaths[fileIdx])
	if err != nil {
		return fmt.Errorf("failed to open CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	// A row may appear several times in one batch.
	wanted := make(map[int][]int)
	last := 0
	for _, s := range slots {
		wanted[s.localIdx] = append(wanted[s.localIdx], s.batchPos)
		last = max(last, s.localIdx)
	}

	for rowIdx := 0; rowIdx <= last; rowIdx++ {
		record, err := reader.Read()
		if err == io.EOF {
			return fmt.Errorf("%s: unexpected end of file at row %d", d.csvPaths[fileIdx], rowIdx)
		}
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}
		positions, ok := wanted[rowIdx]
		if !ok {
			continue
		}
		in, err := parseColumns(record, d.inputCols, d.cfg.InputColumns)
		if err != nil {
			return err
		}
		la, err := parseColumns(record, d.labelCols, d.cfg.LabelColumns)
		if err != nil {
			return err
		}
		for i, pos := range positions {
			if i == 0 {
				inputs[pos], labels[pos] = in, la
				continue
			}
			inputs[pos] = append([]float32(nil), in...)
			labels[pos] = append([]float32(nil), la...)
		}
	}

	return nil
}
