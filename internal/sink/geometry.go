package sink

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/cannabis-pipeline/internal/model"
)

// SRIDWGS84 is the spatial reference of every stored point.
const SRIDWGS84 = 4326

// EncodePoint converts a store's coordinates to little-endian EWKB with SRID
// 4326. Returns nil, nil when the store has no coordinates.
func EncodePoint(s *model.StoreLocation) ([]byte, error) {
	if !s.HasCoordinates() {
		return nil, nil
	}
	p := geom.NewPointFlat(geom.XY, []float64{*s.Longitude, *s.Latitude}).SetSRID(SRIDWGS84)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "sink: encode point")
	}
	return data, nil
}

// DecodePoint parses an EWKB point written by EncodePoint into latitude and
// longitude.
func DecodePoint(data []byte) (lat, lng float64, err error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return 0, 0, eris.Wrap(err, "sink: decode point")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, eris.Errorf("sink: expected point geometry, got %T", g)
	}
	return p.Y(), p.X(), nil
}
