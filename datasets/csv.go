package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

func parseFloat32(s string) (float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

// countCSVRows counts the number of data rows in a CSV file (excluding header)
func countCSVRows(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return 0, err
	}

	count := 0
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		count++
	}

	return count, nil
}

// readHeader returns the normalized (trimmed, lower case) column name to
// index mapping of a CSV file.
func readHeader(path string) (map[string]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV %s: %w", path, err)
	}
	defer file.Close()

	header, err := csv.NewReader(file).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[normalizeColumn(col)] = i
	}
	return colIndex, nil
}

func normalizeColumn(col string) string {
	return strings.TrimSpace(strings.ToLower(col))
}

// resolveColumns maps names onto header positions.
func resolveColumns(colIndex map[string]int, names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		c, ok := colIndex[normalizeColumn(name)]
		if !ok {
			return nil, fmt.Errorf("required column %q not found in CSV", name)
		}
		idx[i] = c
	}
	return idx, nil
}

// parseColumns parses the given record positions into a fresh slice.
func parseColumns(record []string, cols []int, names []string) ([]float32, error) {
	out := make([]float32, len(cols))
	for i, c := range cols {
		if c >= len(record) {
			return nil, fmt.Errorf("column %q missing from row", names[i])
		}
		v, err := parseFloat32(record[c])
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", names[i], err)
		}
		out[i] = v
	}
	return out, nil
}

// FindCSV returns the files matching pattern, sorted. A directory pattern
// expands to every *.csv file inside it.
func FindCSV(pattern string) ([]string, error) {
	if fi, err := os.Stat(pattern); err == nil && fi.IsDir() {
		pattern = filepath.Join(pattern, "*.csv")
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no CSV files found matching pattern: %s", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}
