package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	t := NewTable([]string{"name", "city", "postal"})
	t.Append([]string{"Leaf", "Regina", "S4P 3Y2"})
	t.Append([]string{"Bud", "Saskatoon"})
	t.Append([]string{"Green", "Regina", "S4N 1A1", "extra"})
	return t
}

func TestTable_AppendPadsAndTruncates(t *testing.T) {
	tbl := sampleTable()
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"Bud", "Saskatoon", ""}, tbl.Rows[1])
	assert.Len(t, tbl.Rows[2], 3)
}

func TestTable_ValueAndSet(t *testing.T) {
	tbl := sampleTable()
	assert.Equal(t, "Regina", tbl.Value(0, "city"))
	assert.Equal(t, "", tbl.Value(0, "missing"))

	tbl.Set(1, "postal", "S7K 0J5")
	tbl.Set(1, "missing", "ignored")
	assert.Equal(t, "S7K 0J5", tbl.Value(1, "postal"))
}

func TestTable_Has(t *testing.T) {
	tbl := sampleTable()
	assert.True(t, tbl.Has("name", "city"))
	assert.False(t, tbl.Has("name", "lat"))
}

func TestTable_Records(t *testing.T) {
	recs := sampleTable().Records()
	require.Len(t, recs, 3)
	assert.Equal(t, map[string]string{"name": "Bud", "city": "Saskatoon", "postal": ""}, recs[1])
}

func TestTable_Select(t *testing.T) {
	out, err := sampleTable().Select("postal", "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"postal", "name"}, out.Columns)
	assert.Equal(t, []string{"S4P 3Y2", "Leaf"}, out.Rows[0])

	_, err = sampleTable().Select("nope")
	assert.Error(t, err)
}

func TestTable_Filter(t *testing.T) {
	tbl := sampleTable()
	original := tbl.Rows
	tbl.Filter(func(i int) bool { return original[i][1] == "Regina" })

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "Leaf", tbl.Value(0, "name"))
	assert.Equal(t, "Green", tbl.Value(1, "name"))
	assert.Equal(t, "Bud", original[1][0])
}

func TestTable_RenameAndDrop(t *testing.T) {
	tbl := sampleTable()
	tbl.Rename(map[string]string{"name": "StoreName", "absent": "x"})
	tbl.Drop("postal", "absent")

	assert.Equal(t, []string{"StoreName", "city"}, tbl.Columns)
	assert.Equal(t, []string{"Bud", "Saskatoon"}, tbl.Rows[1])
}

func TestTable_AddColumn(t *testing.T) {
	tbl := sampleTable()
	tbl.AddColumn("province", func(int) string { return "SK" })
	assert.Equal(t, "SK", tbl.Value(2, "province"))
	assert.Len(t, tbl.Columns, 4)

	tbl.AddColumn("city", func(i int) string { return tbl.Value(i, "city") + "!" })
	assert.Equal(t, "Regina!", tbl.Value(0, "city"))
	assert.Len(t, tbl.Columns, 4)
}

func TestCleanHeader(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, cleanHeader([]string{"\ufeff a", "b "}))
}
