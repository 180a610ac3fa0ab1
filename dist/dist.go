// Package dist answers which process of a distributed training group we are.
//
// The launcher (torchrun style) exports RANK and WORLD_SIZE; a process
// started without them is treated as the only member of a group of one.
package dist

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Noofbiz/datapipe/logger"
)

const (
	EnvRank      = "RANK"
	EnvWorldSize = "WORLD_SIZE"
)

// Info is the position of this process in the training group.
type Info struct {
	Rank      int
	WorldSize int
}

// Single is the Info of a non-distributed process.
var Single = Info{Rank: 0, WorldSize: 1}

// FromEnv reads the rank and world size from the process environment.
func FromEnv() (Info, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is FromEnv with a custom variable lookup.
func FromLookup(lookup func(string) (string, bool)) (Info, error) {
	info := Single
	if v, ok := lookup(EnvRank); ok && v != "" {
		r, err := strconv.Atoi(v)
		if err != nil {
			return Single, fmt.Errorf("parse %s=%q: %w", EnvRank, v, err)
		}
		info.Rank = r
	}
	if v, ok := lookup(EnvWorldSize); ok && v != "" {
		w, err := strconv.Atoi(v)
		if err != nil {
			return Single, fmt.Errorf("parse %s=%q: %w", EnvWorldSize, v, err)
		}
		info.WorldSize = w
	}
	if err := info.Validate(); err != nil {
		return Single, err
	}
	return info, nil
}

// Current returns FromEnv, falling back to Single when the environment is
// malformed.
func Current(log logger.Logger) Info {
	info, err := FromEnv()
	if err != nil {
		logger.OrNop(log).Warnf("distributed info unavailable, assuming single process: %v", err)
		return Single
	}
	return info
}

// Validate checks 0 <= Rank < WorldSize.
func (i Info) Validate() error {
	if i.WorldSize < 1 {
		return fmt.Errorf("world size must be >= 1, got %d", i.WorldSize)
	}
	if i.Rank < 0 || i.Rank >= i.WorldSize {
		return fmt.Errorf("rank %d out of range [0, %d)", i.Rank, i.WorldSize)
	}
	return nil
}

// IsMain reports whether this is rank 0.
func (i Info) IsMain() bool { return i.Rank == 0 }
