package config

import (
	"sort"
	"strings"

	"github.com/Noofbiz/datapipe/datasets"
)

// Section is one entry of the datasets mapping.
type Section struct {
	Key     string
	Phase   string
	Options datasets.Options
}

// DatasetSections returns every dataset section sorted by key. The phase is
// the key up to its first underscore (val_2 is a val section) and is written
// into a copy of the section's options.
func (c Config) DatasetSections() []Section {
	keys := make([]string, 0, len(c.Datasets))
	for k := range c.Datasets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Section, 0, len(keys))
	for _, k := range keys {
		phase, _, _ := strings.Cut(k, "_")
		opts := make(datasets.Options, len(c.Datasets[k])+1)
		for name, v := range c.Datasets[k] {
			opts[name] = v
		}
		opts["phase"] = phase
		out = append(out, Section{Key: k, Phase: phase, Options: opts})
	}
	return out
}
