package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/datapipe/dataloader"
	"github.com/Noofbiz/datapipe/datasets"
	"github.com/Noofbiz/datapipe/dist"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sampleYAML = `name: bowl
num_gpu: 2
manual_seed: 10
datasets:
  train:
    name: plays
    type: PredictionDataset
    pattern: data/train
    batch_size_per_gpu: 4
    num_worker_per_gpu: 2
    prefetch_mode: cpu
  val_1:
    name: holdout
    type: PredictionDataset
    pattern: data/val
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, "options.yaml", sampleYAML))
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"name", cfg.Name, "bowl"},
		{"num_gpu", cfg.NumGPU, 2},
		{"dist", cfg.Dist, false},
		{"logging.level", cfg.Logging.Level, "info"},
		{"metrics.prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"datasets", len(cfg.Datasets), 2},
		{"train.type", cfg.Datasets["train"]["type"], "PredictionDataset"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
	require.NotNil(t, cfg.ManualSeed)
	assert.Equal(t, int64(10), *cfg.ManualSeed)
}

func TestLoadJSON(t *testing.T) {
	data := `{"name": "j", "dist": true, "logging": {"level": "debug"},
"datasets": {"test": {"name": "t", "type": "MemoryDataset", "inputs": [[1], [2]]}}}`
	cfg, err := Load(writeFile(t, "options.json", data))
	require.NoError(t, err)
	assert.True(t, cfg.Dist)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Nil(t, cfg.ManualSeed)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DATAPIPE_NAME", "from-env")
	t.Setenv("DATAPIPE_DATASETS__TRAIN__BATCH_SIZE_PER_GPU", "16")
	cfg, err := Load(writeFile(t, "options.yml", sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Name)

	train := cfg.Datasets["train"]
	assert.Equal(t, "16", train["batch_size_per_gpu"])
	assert.Equal(t, "plays", train["name"], "override merges into the section")

	opts, err := dataloader.ParseOptions(cfg.DatasetSections()[0].Options)
	require.NoError(t, err)
	assert.Equal(t, 16, opts.BatchSizePerGPU)
	assert.Equal(t, 2, opts.NumWorkerPerGPU)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "options.toml", "name = 1"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "num_gpu: -1\n"))
	assert.ErrorContains(t, err, "num_gpu")

	_, err = Load(writeFile(t, "noname.yaml", "datasets:\n  train:\n    type: MemoryDataset\n"))
	assert.ErrorContains(t, err, "datasets.train: name is required")

	_, err = Load(writeFile(t, "level.yaml", "logging:\n  level: loud\n"))
	assert.ErrorContains(t, err, "unknown level loud")
}

func TestDatasetSections(t *testing.T) {
	cfg, err := Load(writeFile(t, "options.yaml", sampleYAML))
	require.NoError(t, err)

	sections := cfg.DatasetSections()
	require.Len(t, sections, 2)
	assert.Equal(t, "train", sections[0].Key)
	assert.Equal(t, "train", sections[0].Phase)
	assert.Equal(t, "val_1", sections[1].Key)
	assert.Equal(t, "val", sections[1].Phase)
	assert.Equal(t, "val", sections[1].Options["phase"])
	assert.Equal(t, "holdout", sections[1].Options.Name())
	_, touched := cfg.Datasets["val_1"]["phase"]
	assert.False(t, touched, "config mapping is not modified")
}

func TestDatasetSectionsBuildLoaders(t *testing.T) {
	cfg := Config{
		NumGPU:     2,
		ManualSeed: dataloader.SeedValue(3),
		Datasets: map[string]map[string]any{
			"train": {
				"name":               "mem",
				"type":               "MemoryDataset",
				"inputs":             [][]float32{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}},
				"batch_size_per_gpu": 2,
				"num_worker_per_gpu": 1,
			},
		},
	}
	rt := cfg.Runtime(dist.Single)
	assert.Equal(t, 2, rt.NumDevices)
	assert.Equal(t, int64(3), *rt.Seed)

	s := cfg.DatasetSections()[0]
	ds, err := datasets.Create(s.Options)
	require.NoError(t, err)
	it, err := dataloader.CreateFromMap(ds, s.Options, rt)
	require.NoError(t, err)
	defer it.Close()
	l := it.(*dataloader.Loader)
	assert.Equal(t, 4, l.BatchSize())
	assert.Equal(t, 2, l.NumWorkers())
	assert.Equal(t, 2, l.Len())
}

func TestLoggingFileDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "log.yaml", "logging:\n  file: logs/datapipe.log\n  max_backups: 3\n"))
	require.NoError(t, err)
	fc := cfg.Logging.FileConfig()
	assert.Equal(t, "logs/datapipe.log", fc.Path)
	assert.Equal(t, 100, fc.MaxSizeMB)
	assert.Equal(t, 3, fc.MaxBackups)
}
