package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/cannabis-pipeline/internal/model"
)

func TestEncodePoint(t *testing.T) {
	s := model.StoreLocation{}
	s.SetCoordinates(49.2827, -123.1207)

	data, err := EncodePoint(&s)
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	p, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, SRIDWGS84, p.SRID())
	assert.InDelta(t, -123.1207, p.X(), 1e-12)
	assert.InDelta(t, 49.2827, p.Y(), 1e-12)

	lat, lng, err := DecodePoint(data)
	require.NoError(t, err)
	assert.InDelta(t, 49.2827, lat, 1e-12)
	assert.InDelta(t, -123.1207, lng, 1e-12)
}

func TestEncodePoint_NoCoordinates(t *testing.T) {
	data, err := EncodePoint(&model.StoreLocation{})
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestDecodePoint_Garbage(t *testing.T) {
	_, _, err := DecodePoint([]byte{0x01, 0x02})
	assert.Error(t, err)
}
