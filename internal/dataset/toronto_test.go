package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCollision(t *testing.T) {
	assert.Equal(t, CollisionFatalInjury, ClassifyCollision("YES", "YES", "NO"))
	assert.Equal(t, CollisionInjury, ClassifyCollision("NO", "YES", "YES"))
	assert.Equal(t, CollisionPropertyDamage, ClassifyCollision("NO", "NO", "YES"))
	assert.Equal(t, CollisionNone, ClassifyCollision("NO", "NO", "NO"))
	assert.Equal(t, CollisionNone, ClassifyCollision("", "", ""))
}

func writeTorontoFixture(t *testing.T, env *Env) {
	t.Helper()
	writeRawTable(t, env, torontoDir+"/Totonto_Traffic_Collisions.parquet",
		[]string{"OBJECTID", "OCC_DATE", "LAT_WGS84", "LONG_WGS84", "FATALITIES", "INJURY_COLLISIONS",
			"FTR_COLLISIONS", "PD_COLLISIONS", "NEIGHBOURHOOD_158", "DIVISION"},
		[]string{"1", "2023-05-01", "43.65", "-79.38", "1", "YES", "YES", "NO", "Annex", "D14"},
		[]string{"2", "2023-05-02", "43.66", "-79.39", "", "NO", "NO", "YES", "Moss Park", "D51"},
	)
	writeRaw(t, env, torontoDir+"/Toronto_Persons_in_Crisis_Calls_for_Service_Attended.csv",
		"OBJECTID,EVENT_ID,EVENT_DATE,EVENT_TYPE,DIVISION,NEIGHBOURHOOD_158\n"+
			"7,E1,2023-01-02,Suicide-related,D11,High Park North\n")
	writeRaw(t, env, torontoDir+"/Toronto_Calls_for_Service_Attended.csv",
		"ObjectId,EVENT_YEAR,EVENT_COUNT,NEIGHBOURHOOD_158,HOOD_158\n"+
			"3,2022,41,Annex,95\n"+
			"4,2022,12,,\n")
}

func TestToronto_Build(t *testing.T) {
	env := testEnv(t)
	writeTorontoFixture(t, env)

	outs, err := Toronto{}.Build(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, outs, 3)

	traffic := outputByFile(t, outs, "toronto_traffic_collisions.parquet")
	assert.Equal(t, []string{"Object_ID", "Accident_Date", "Latitude", "Longitude",
		"Fatalities", "Collision_Type", "Neighbourhood"}, traffic.Columns)
	assert.Equal(t, []string{CollisionFatalInjury, CollisionPropertyDamage}, column(t, traffic, "Collision_Type"))
	assert.Equal(t, []string{"Annex", "Moss Park"}, column(t, traffic, "Neighbourhood"))

	crisis := outputByFile(t, outs, "toronto_person_in_crisis.csv")
	assert.Equal(t, []string{"Object_ID", "Accident_Date", "Event_Type", "Neighbourhood"}, crisis.Columns)
	assert.Equal(t, [][]string{{"7", "2023-01-02", "Suicide-related", "High Park North"}}, crisis.Rows)

	calls := outputByFile(t, outs, "toronto_calls_for_service.csv")
	assert.Equal(t, []string{"Object_ID", "Year", "Event_Count", "Neighbourhood"}, calls.Columns)
	assert.Equal(t, []string{"Annex (95)", ""}, column(t, calls, "Neighbourhood"))
}

func TestToronto_CallsMissingColumns(t *testing.T) {
	env := testEnv(t)
	writeTorontoFixture(t, env)
	writeRaw(t, env, torontoDir+"/Toronto_Calls_for_Service_Attended.csv", "ObjectId,EVENT_YEAR\n1,2022\n")

	_, err := Toronto{}.Build(context.Background(), env)
	assert.Error(t, err)
}
