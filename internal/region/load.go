package region

import (
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cannabis-pipeline/internal/model"
)

var validate = validator.New()

// LoadSources reads a source list from a YAML file of the form
//
//	sources:
//	  - file: Ontario.csv
//	    province: ON
//	    columns: {"Store Name": StoreName, FullAddress: Address}
//
// The result replaces DefaultSources entirely.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: read sources %s", path)
	}

	var wrapper struct {
		Sources []Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "region: parse sources")
	}
	if len(wrapper.Sources) == 0 {
		return nil, eris.Errorf("region: %s declares no sources", path)
	}

	for i := range wrapper.Sources {
		wrapper.Sources[i].Province = model.Province(strings.ToUpper(string(wrapper.Sources[i].Province)))
	}
	return wrapper.Sources, nil
}

// Validate checks a source's declaration. Every problem is reported as a
// *model.ConfigurationError so the caller can skip just that source.
func Validate(s Source) error {
	if err := validate.Struct(s); err != nil {
		return model.NewConfigurationError(s.Label(), "%v", err)
	}
	if !s.Province.Valid() {
		return model.NewConfigurationError(s.Label(), "unknown province code %q", s.Province)
	}

	targets := make(map[string]bool, len(s.Columns))
	for _, raw := range slices.Sorted(maps.Keys(s.Columns)) {
		field := s.Columns[raw]
		if !model.IsCanonicalField(field) {
			return model.NewConfigurationError(s.Label(), "column %q maps to unknown field %q", raw, field)
		}
		if targets[field] {
			return model.NewConfigurationError(s.Label(), "field %s is mapped by more than one column", field)
		}
		targets[field] = true
	}

	if s.Strategy() == AddressCombinedPostal && !targets[model.FieldFullAddress] {
		return model.NewConfigurationError(s.Label(), "no column mapped to %s", model.FieldFullAddress)
	}
	if targets[model.FieldLatitude] != targets[model.FieldLongitude] {
		return model.NewConfigurationError(s.Label(), "latitude and longitude must be mapped together")
	}
	if targets[model.FieldX] != targets[model.FieldY] {
		return model.NewConfigurationError(s.Label(), "X and Y must be mapped together")
	}
	if targets[model.FieldX] && s.CRS == "" {
		return model.NewConfigurationError(s.Label(), "projected X/Y columns require a crs")
	}
	return nil
}
