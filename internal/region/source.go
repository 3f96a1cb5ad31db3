// Package region declares the regional store-registry sources and how their
// columns map onto the canonical store record.
package region

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/sells-group/cannabis-pipeline/internal/model"
)

// AddressStrategy selects how a source's address column is finalized.
type AddressStrategy string

const (
	// AddressDirect takes the mapped Address column as-is.
	AddressDirect AddressStrategy = "direct"
	// AddressCombinedPostal runs the address normalizer over a FullAddress
	// column that embeds city, province and postal code.
	AddressCombinedPostal AddressStrategy = "combined_postal"
)

// ProvinceFilterColumn is the registry column holding a row's province code.
const ProvinceFilterColumn = "Site Province Abbrev"

// Source is one regional input file and its column mapping. Values are
// treated as immutable once loaded.
type Source struct {
	// Name identifies the source in logs and metrics. Defaults to File[Province].
	Name     string         `yaml:"name"`
	File     string         `yaml:"file" validate:"required"`
	Province model.Province `yaml:"province" validate:"required,len=2"`

	// Format overrides the reader chosen from File's extension.
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=csv csv.gz xlsx parquet shp"`

	// Sheet selects a worksheet for xlsx sources; empty reads the first one.
	Sheet string `yaml:"sheet,omitempty"`

	// Columns maps raw column names to canonical field names.
	Columns map[string]string `yaml:"columns" validate:"required,min=1"`

	AddressStrategy AddressStrategy `yaml:"address_strategy,omitempty" validate:"omitempty,oneof=direct combined_postal"`

	// FilterColumn keeps only rows whose value equals Province. Used for
	// national registries that list several provinces.
	FilterColumn string `yaml:"filter_column,omitempty"`

	// CRS is the reference system of mapped X/Y columns.
	CRS string `yaml:"crs,omitempty"`
}

// Label returns the source's display name.
func (s Source) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s[%s]", s.File, s.Province)
}

// Strategy returns the address strategy, defaulting to AddressDirect.
func (s Source) Strategy() AddressStrategy {
	if s.AddressStrategy == "" {
		return AddressDirect
	}
	return s.AddressStrategy
}

// ResolvedFormat returns Format, or the format implied by File's extension.
func (s Source) ResolvedFormat() string {
	if s.Format != "" {
		return s.Format
	}
	name := strings.ToLower(s.File)
	if strings.HasSuffix(name, ".csv.gz") {
		return "csv.gz"
	}
	return strings.TrimPrefix(filepath.Ext(name), ".")
}

// Path joins File onto dir unless File is already absolute.
func (s Source) Path(dir string) string {
	if filepath.IsAbs(s.File) {
		return s.File
	}
	return filepath.Join(dir, s.File)
}

// registryColumns is the column layout of the national licensed retailer
// registry, which covers several provinces in one file.
var registryColumns = map[string]string{
	"Establishment Name":  model.FieldStoreName,
	"Site City Name":      model.FieldCity,
	"Site Address Line 1": model.FieldAddress,
	"Site Postal Code":    model.FieldPostalCode,
}

func registrySource(p model.Province) Source {
	return Source{
		File:         "Alberta.xlsx",
		Province:     p,
		Columns:      maps.Clone(registryColumns),
		FilterColumn: ProvinceFilterColumn,
	}
}

func fullAddressSource(file string, p model.Province) Source {
	return Source{
		File:     file,
		Province: p,
		Columns: map[string]string{
			model.FieldStoreName: model.FieldStoreName,
			model.FieldCity:      model.FieldCity,
			"FullAddress":        model.FieldAddress,
		},
	}
}

// DefaultSources returns the built-in store-registry configuration covering
// every province and territory.
func DefaultSources() []Source {
	return []Source{
		registrySource(model.Alberta),
		registrySource(model.BritishColumbia),
		{
			File:     "BritishColumbia.csv",
			Province: model.BritishColumbia,
			Columns: map[string]string{
				model.FieldStoreName: model.FieldStoreName,
				model.FieldCity:      model.FieldCity,
				"FullAddress":        model.FieldFullAddress,
			},
			AddressStrategy: AddressCombinedPostal,
		},
		registrySource(model.Manitoba),
		fullAddressSource("Manitoba.csv", model.Manitoba),
		fullAddressSource("NewBrunswick.csv", model.NewBrunswick),
		fullAddressSource("Newfoundland.csv", model.NewfoundlandAndLabrador),
		fullAddressSource("NorthwestTerritories.csv", model.NorthwestTerritories),
		fullAddressSource("NovaScotia.csv", model.NovaScotia),
		fullAddressSource("Nunavut.csv", model.Nunavut),
		{
			File:     "Ontario.csv",
			Province: model.Ontario,
			Columns: map[string]string{
				"Store Name":                   model.FieldStoreName,
				"Municipality or First Nation": model.FieldCity,
				"FullAddress":                  model.FieldAddress,
			},
		},
		fullAddressSource("PrinceEdwardIsland.csv", model.PrinceEdwardIsland),
		fullAddressSource("Quebec.csv", model.Quebec),
		{
			File:     "Saskatchewan.csv",
			Province: model.Saskatchewan,
			Columns: map[string]string{
				"Operating Name": model.FieldStoreName,
				"Street Address": model.FieldAddress,
			},
		},
		fullAddressSource("Yukon.csv", model.Yukon),
	}
}
