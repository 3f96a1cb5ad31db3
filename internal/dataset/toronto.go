package dataset

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
)

const torontoDir = "05_crime_by_city_data/Toronto"

// Collision type labels.
const (
	CollisionFatalInjury    = "Fatal & Injury"
	CollisionInjury         = "Injury"
	CollisionPropertyDamage = "Property Damage Only"
	CollisionNone           = "None"
)

// Toronto reshapes the three Toronto police open-data tables.
type Toronto struct{}

// Name implements Dataset.
func (Toronto) Name() string { return "toronto" }

// Build implements Dataset.
func (Toronto) Build(ctx context.Context, env *Env) ([]Output, error) {
	traffic, err := torontoTraffic(ctx, env)
	if err != nil {
		return nil, err
	}
	crisis, err := torontoCrisis(ctx, env)
	if err != nil {
		return nil, err
	}
	calls, err := torontoCalls(ctx, env)
	if err != nil {
		return nil, err
	}
	return []Output{
		{File: "toronto_traffic_collisions.parquet", Table: traffic},
		{File: "toronto_person_in_crisis.csv", Table: crisis},
		{File: "toronto_calls_for_service.csv", Table: calls},
	}, nil
}

// ClassifyCollision labels a collision from its YES/NO indicator columns,
// checking fatal-and-injury first, then injury, then property damage.
func ClassifyCollision(fatalInjury, injury, propertyDamage string) string {
	switch {
	case fatalInjury == "YES":
		return CollisionFatalInjury
	case injury == "YES":
		return CollisionInjury
	case propertyDamage == "YES":
		return CollisionPropertyDamage
	}
	return CollisionNone
}

func torontoTraffic(ctx context.Context, env *Env) (*fetcher.Table, error) {
	// The upstream file name is misspelled.
	t, err := fetcher.ReadTable(ctx, env.raw(torontoDir, "Totonto_Traffic_Collisions.parquet"), fetcher.ReadOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "toronto: read traffic collisions")
	}
	t.Rename(map[string]string{
		"OBJECTID":          "Object_ID",
		"OCC_DATE":          "Accident_Date",
		"LAT_WGS84":         "Latitude",
		"LONG_WGS84":        "Longitude",
		"FATALITIES":        "Fatalities",
		"INJURY_COLLISIONS": "Injuries",
		"FTR_COLLISIONS":    "Fatal_And_Injury_Collisions",
		"PD_COLLISIONS":     "Property_Damage_Only_Collisions",
		"NEIGHBOURHOOD_158": "Neighbourhood",
	})
	t.AddColumn("Collision_Type", func(i int) string {
		return ClassifyCollision(
			t.Value(i, "Fatal_And_Injury_Collisions"),
			t.Value(i, "Injuries"),
			t.Value(i, "Property_Damage_Only_Collisions"),
		)
	})

	out, err := t.Select("Object_ID", "Accident_Date", "Latitude", "Longitude",
		"Fatalities", "Collision_Type", "Neighbourhood")
	if err != nil {
		return nil, eris.Wrap(err, "toronto: select traffic columns")
	}
	return out, nil
}

func torontoCrisis(ctx context.Context, env *Env) (*fetcher.Table, error) {
	t, err := fetcher.ReadTable(ctx, env.raw(torontoDir, "Toronto_Persons_in_Crisis_Calls_for_Service_Attended.csv"), fetcher.ReadOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "toronto: read persons in crisis")
	}
	t.Rename(map[string]string{
		"OBJECTID":          "Object_ID",
		"EVENT_DATE":        "Accident_Date",
		"EVENT_TYPE":        "Event_Type",
		"NEIGHBOURHOOD_158": "Neighbourhood",
	})

	out, err := t.Select("Object_ID", "Accident_Date", "Event_Type", "Neighbourhood")
	if err != nil {
		return nil, eris.Wrap(err, "toronto: select crisis columns")
	}
	return out, nil
}

func torontoCalls(ctx context.Context, env *Env) (*fetcher.Table, error) {
	t, err := fetcher.ReadTable(ctx, env.raw(torontoDir, "Toronto_Calls_for_Service_Attended.csv"), fetcher.ReadOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "toronto: read calls for service")
	}
	t.Rename(map[string]string{
		"ObjectId":          "Object_ID",
		"EVENT_YEAR":        "Year",
		"EVENT_COUNT":       "Event_Count",
		"NEIGHBOURHOOD_158": "Neighbourhood",
	})
	if err := requireColumns("toronto", t, "Neighbourhood", "HOOD_158"); err != nil {
		return nil, err
	}
	t.AddColumn("Neighbourhood", func(i int) string {
		name, hood := t.Value(i, "Neighbourhood"), t.Value(i, "HOOD_158")
		if missing(name) || missing(hood) {
			return ""
		}
		return name + " (" + hood + ")"
	})

	out, err := t.Select("Object_ID", "Year", "Event_Count", "Neighbourhood")
	if err != nil {
		return nil, eris.Wrap(err, "toronto: select calls columns")
	}
	return out, nil
}
