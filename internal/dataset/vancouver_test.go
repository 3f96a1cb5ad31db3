package dataset

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportDate(t *testing.T) {
	assert.Equal(t, "2014-03-07", ReportDate("2014", "3", "7"))
	assert.Equal(t, "2020-11-25", ReportDate("2020", "11", "25"))
	assert.Equal(t, "2019-01-09", ReportDate("2019", "1.0", "9.0"))
}

func TestVancouver_Build(t *testing.T) {
	env := testEnv(t)
	writeRaw(t, env, "05_crime_by_city_data/Vancouver/Crimes_2014.csv",
		"TYPE,YEAR,MONTH,DAY,HOUR,MINUTE,HUNDRED_BLOCK,NEIGHBOURHOOD,X,Y\n"+
			"Theft from Vehicle,2014,3,7,14,30,10XX GRANVILLE ST,Central Business District,491000,5458000\n"+
			"Offence Against a Person,2014,12,25,,,OFFSET TO PROTECT PRIVACY,,,\n")

	outs, err := Vancouver{FromYear: 2014, ToYear: 2014}.Build(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "vancouver_crimes.csv", outs[0].File)

	tbl := outs[0].Table
	assert.Equal(t, []string{"TYPE", "HUNDRED_BLOCK", "NEIGHBOURHOOD", "Date_Reported", "latitude", "longitude"}, tbl.Columns)
	assert.Equal(t, []string{"2014-03-07", "2014-12-25"}, column(t, tbl, "Date_Reported"))

	lat, err := strconv.ParseFloat(tbl.Value(0, "latitude"), 64)
	require.NoError(t, err)
	lng, err := strconv.ParseFloat(tbl.Value(0, "longitude"), 64)
	require.NoError(t, err)
	assert.InDelta(t, 49.2747, lat, 1e-3)
	assert.InDelta(t, -123.1237, lng, 1e-3)

	assert.Empty(t, tbl.Value(1, "latitude"))
	assert.Empty(t, tbl.Value(1, "longitude"))
}

func TestVancouver_MissingColumns(t *testing.T) {
	env := testEnv(t)
	writeRaw(t, env, "05_crime_by_city_data/Vancouver/Crimes_2014.csv", "TYPE,YEAR\nTheft,2014\n")

	_, err := Vancouver{FromYear: 2014, ToYear: 2014}.Build(context.Background(), env)
	assert.Error(t, err)
}
