// Package dataset builds the statistical and crime output tables from the raw
// data directory. Each Dataset reads its inputs, reshapes them and returns one
// or more named output tables; the Engine writes them.
package dataset

import (
	"context"
	"path/filepath"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
	"github.com/sells-group/cannabis-pipeline/pkg/geocode"
)

// DefaultThreshold is the missing-value share at or above which a column or
// row is dropped by DropHighMissing.
const DefaultThreshold = 0.5

// Env is the working environment shared by every dataset in a run.
type Env struct {
	// RawDir holds the downloaded inputs, one subdirectory per source family.
	RawDir string
	// OutputDir receives the final outputs. Later datasets may read earlier
	// outputs from it.
	OutputDir string
	// Geocoder resolves free-text addresses. Only datasets that geocode need it.
	Geocoder geocode.Client
	// Threshold overrides DefaultThreshold when positive.
	Threshold float64
}

func (e *Env) raw(parts ...string) string {
	return filepath.Join(append([]string{e.RawDir}, parts...)...)
}

func (e *Env) output(name string) string {
	return filepath.Join(e.OutputDir, name)
}

func (e *Env) threshold() float64 {
	if e.Threshold > 0 {
		return e.Threshold
	}
	return DefaultThreshold
}

// Output is one table produced by a dataset. File is relative to the output
// directory and its extension selects the writer.
type Output struct {
	File  string
	Table *fetcher.Table
}

// Dataset defines the interface each processed dataset implements.
type Dataset interface {
	// Name returns the unique identifier used on the command line.
	Name() string

	// Build reads the dataset's raw inputs and returns its output tables.
	Build(ctx context.Context, env *Env) ([]Output, error)
}
