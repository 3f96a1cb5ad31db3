package region

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cannabis-pipeline/internal/model"
)

func TestDefaultSources_Valid(t *testing.T) {
	sources := DefaultSources()
	seen := map[model.Province]bool{}
	for _, s := range sources {
		assert.NoError(t, Validate(s), s.Label())
		seen[s.Province] = true
	}
	for _, p := range model.Provinces() {
		assert.True(t, seen[p], "no source for %s", p)
	}
}

func TestDefaultSources_CombinedAddressOnlyForBC(t *testing.T) {
	var combined []Source
	for _, s := range DefaultSources() {
		if s.Strategy() == AddressCombinedPostal {
			combined = append(combined, s)
		}
	}
	require.Len(t, combined, 1)
	assert.Equal(t, model.BritishColumbia, combined[0].Province)
	assert.Equal(t, "BritishColumbia.csv", combined[0].File)
}

func TestDefaultSources_RegistryFiltered(t *testing.T) {
	var provinces []model.Province
	for _, s := range DefaultSources() {
		if s.File == "Alberta.xlsx" {
			assert.Equal(t, ProvinceFilterColumn, s.FilterColumn)
			provinces = append(provinces, s.Province)
		}
	}
	assert.ElementsMatch(t, []model.Province{model.Alberta, model.BritishColumbia, model.Manitoba}, provinces)
}

func TestDefaultSources_ColumnsNotShared(t *testing.T) {
	a := DefaultSources()
	a[0].Columns["extra"] = model.FieldCity
	b := DefaultSources()
	_, ok := b[0].Columns["extra"]
	assert.False(t, ok)
	_, ok = a[1].Columns["extra"]
	assert.False(t, ok)
}

func TestSource_Helpers(t *testing.T) {
	s := Source{File: "data/Ontario.CSV.GZ", Province: model.Ontario}
	assert.Equal(t, "data/Ontario.CSV.GZ[ON]", s.Label())
	assert.Equal(t, "csv.gz", s.ResolvedFormat())
	assert.Equal(t, AddressDirect, s.Strategy())
	assert.Equal(t, filepath.Join("raw", "data/Ontario.CSV.GZ"), s.Path("raw"))

	s.Name = "ontario"
	s.Format = "csv"
	s.File = "/abs/Ontario.txt"
	assert.Equal(t, "ontario", s.Label())
	assert.Equal(t, "csv", s.ResolvedFormat())
	assert.Equal(t, "/abs/Ontario.txt", s.Path("raw"))

	assert.Equal(t, "xlsx", Source{File: "Alberta.xlsx"}.ResolvedFormat())
}

func TestValidate_Errors(t *testing.T) {
	valid := Source{
		File:     "x.csv",
		Province: model.Ontario,
		Columns:  map[string]string{"A": model.FieldAddress},
	}
	require.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*Source)
		want   string
	}{
		{"unknown province", func(s *Source) { s.Province = "ZZ" }, "unknown province"},
		{"missing file", func(s *Source) { s.File = "" }, "File"},
		{"no columns", func(s *Source) { s.Columns = nil }, "Columns"},
		{"unknown target", func(s *Source) { s.Columns["B"] = "Phone" }, "unknown field"},
		{"combined needs full address", func(s *Source) { s.AddressStrategy = AddressCombinedPostal }, "FullAddress"},
		{"bad strategy", func(s *Source) { s.AddressStrategy = "guess" }, "AddressStrategy"},
		{"bad format", func(s *Source) { s.Format = "xls" }, "Format"},
		{"half coordinates", func(s *Source) { s.Columns["lat"] = model.FieldLatitude }, "latitude and longitude"},
		{"duplicate target", func(s *Source) { s.Columns["Street"] = model.FieldAddress }, "more than one column"},
		{"xy without crs", func(s *Source) {
			s.Columns["x"] = model.FieldX
			s.Columns["y"] = model.FieldY
		}, "crs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			s.Columns = map[string]string{"A": model.FieldAddress}
			tt.mutate(&s)
			err := Validate(s)
			require.Error(t, err)
			assert.True(t, model.IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_DirectWithoutAddress(t *testing.T) {
	s := Source{
		File:     "Alberta.xlsx",
		Province: model.Alberta,
		Columns:  map[string]string{"Establishment Name": model.FieldStoreName},
	}
	assert.NoError(t, Validate(s))
}

func TestLoadSources(t *testing.T) {
	yml := `
sources:
  - file: Ontario.csv
    province: on
    columns:
      "Store Name": StoreName
      FullAddress: Address
  - name: bc-combined
    file: BritishColumbia.csv
    province: BC
    address_strategy: combined_postal
    columns: {FullAddress: FullAddress, City: City}
  - file: stores.shp
    province: BC
    crs: EPSG:26910
    columns: {X: X, Y: Y, ADDR: Address}
`
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, model.Ontario, sources[0].Province)
	assert.Equal(t, model.FieldStoreName, sources[0].Columns["Store Name"])
	assert.Equal(t, "bc-combined", sources[1].Label())
	assert.Equal(t, AddressCombinedPostal, sources[1].Strategy())
	assert.Equal(t, "EPSG:26910", sources[2].CRS)
	for _, s := range sources {
		assert.NoError(t, Validate(s), s.Label())
	}
}

func TestLoadSources_Errors(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("sources: []\n"), 0o644))
	_, err = LoadSources(empty)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sources: [:\n"), 0o644))
	_, err = LoadSources(bad)
	assert.Error(t, err)
}
