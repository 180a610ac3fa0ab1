package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// SequenceConfig configures a SequenceDataset.
type SequenceConfig struct {
	// Pattern used to find CSV files. A directory selects every CSV inside it.
	Pattern string `json:"pattern"`
	// KeyColumn groups rows into sequences. When empty, "play_id", "playid"
	// and "play" are tried in that order.
	KeyColumn string `json:"key_column"`
	// Columns are the per-step channels, in order.
	Columns []string `json:"columns"`
	// Length pads with zeros or truncates every sequence to this many steps.
	// Zero keeps the natural length.
	Length int `json:"length"`
}

type seqLocation struct {
	fileIdx int
	rows    []int
}

// SequenceDataset stores paths to CSV files with time-series rows and
// groups them by a key column. Each example is one key's rows flattened in
// file order (time major, channels minor). It carries no labels.
type SequenceDataset struct {
	cfg      SequenceConfig
	csvPaths []string
	keyCol   int
	seqCols  []int

	// keys in first-appearance order
	keys      []string
	locations map[string]seqLocation
}

func init() {
	Register("SequenceDataset", func(opts Options) (Dataset, error) {
		var cfg SequenceConfig
		if err := Decode(opts, &cfg); err != nil {
			return nil, fmt.Errorf("decode SequenceDataset options: %w", err)
		}
		return NewSequenceDataset(cfg)
	})
}

// NewSequenceDataset creates a sequence dataset with lazy loading.
func NewSequenceDataset(cfg SequenceConfig) (*SequenceDataset, error) {
	if cfg.Pattern == "" {
		return nil, fmt.Errorf("sequence dataset: pattern is required")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("sequence dataset: at least one column is required")
	}
	if cfg.Length < 0 {
		return nil, fmt.Errorf("sequence dataset: length must be >= 0, got %d", cfg.Length)
	}
	csvPaths, err := FindCSV(cfg.Pattern)
	if err != nil {
		return nil, err
	}

	s := &SequenceDataset{
		cfg:       cfg,
		csvPaths:  csvPaths,
		locations: make(map[string]seqLocation),
	}
	if err := s.initializeColumns(); err != nil {
		return nil, err
	}
	for fileIdx, path := range csvPaths {
		if err := s.scanFile(fileIdx, path); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
	}
	return s, nil
}

// initializeColumns determines column indices from the first file
func (s *SequenceDataset) initializeColumns() error {
	colIndex, err := readHeader(s.csvPaths[0])
	if err != nil {
		return err
	}

	candidates := []string{"play_id", "playid", "play"}
	if s.cfg.KeyColumn != "" {
		candidates = []string{s.cfg.KeyColumn}
	}
	s.keyCol = -1
	for _, name := range candidates {
		if idx, ok := colIndex[normalizeColumn(name)]; ok {
			s.keyCol = idx
			break
		}
	}
	if s.keyCol == -1 {
		return fmt.Errorf("could not find key column (tried %v)", candidates)
	}

	s.seqCols, err = resolveColumns(colIndex, s.cfg.Columns)
	return err
}

// scanFile records the rows of every key found in a file. A key seen in an
// earlier file keeps its first location.
func (s *SequenceDataset) scanFile(fileIdx int, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return err
	}

	var order []string
	rows := make(map[string][]int)
	for rowIdx := 0; ; rowIdx++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		key := record[s.keyCol]
		if _, seen := rows[key]; !seen {
			order = append(order, key)
		}
		rows[key] = append(rows[key], rowIdx)
	}

	for _, key := range order {
		if _, dup := s.locations[key]; dup {
			continue
		}
		s.locations[key] = seqLocation{fileIdx: fileIdx, rows: rows[key]}
		s.keys = append(s.keys, key)
	}
	return nil
}

// Len returns the number of distinct keys
func (s *SequenceDataset) Len() int {
	return len(s.keys)
}

// Key returns the grouping key of example idx.
func (s *SequenceDataset) Key(idx int) string {
	return s.keys[idx]
}

// Shape returns the (time steps, channels) of example idx.
func (s *SequenceDataset) Shape(idx int) (int, int) {
	steps := len(s.locations[s.keys[idx]].rows)
	if s.cfg.Length > 0 {
		steps = s.cfg.Length
	}
	return steps, len(s.seqCols)
}

// Example returns one key's flattened sequence. labels is always nil.
func (s *SequenceDataset) Example(idx int) (inputs []float32, labels []float32, err error) {
	if idx < 0 || idx >= len(s.keys) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(s.keys))
	}
	seq, err := s.load(s.keys[idx])
	if err != nil {
		return nil, nil, err
	}
	return seq, nil, nil
}

func (s *SequenceDataset) load(key string) ([]float32, error) {
	loc := s.locations[key]

	file, err := os.Open(s.csvPaths[loc.fileIdx])
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, err
	}

	steps := len(loc.rows)
	if s.cfg.Length > 0 {
		steps = min(steps, s.cfg.Length)
	}
	channels := len(s.seqCols)
	width := steps
	if s.cfg.Length > 0 {
		width = s.cfg.Length
	}
	sequence := make([]float32, width*channels)

	// loc.rows is ascending, so one forward pass suffices.
	next, rowIdx := 0, 0
	for next < steps {
		record, err := reader.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("key %s: unexpected end of file", key)
		}
		if err != nil {
			return nil, err
		}
		if rowIdx == loc.rows[next] {
			vals, err := parseColumns(record, s.seqCols, s.cfg.Columns)
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
			copy(sequence[next*channels:], vals)
			next++
		}
		rowIdx++
	}
	return sequence, nil
}
