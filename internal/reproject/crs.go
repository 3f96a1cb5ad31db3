package reproject

import (
	"math"
	"strconv"
	"strings"

	"github.com/im7mortal/UTM"

	"github.com/sells-group/cannabis-pipeline/internal/model"
)

// Well-known reference systems used by the regional sources.
const (
	WGS84          = "EPSG:4326"
	WebMercator    = "EPSG:3857"
	NAD83UTMZone10 = "EPSG:26910"
)

// crs converts between its native coordinates and geographic lon/lat degrees.
type crs interface {
	toGeographic(x, y float64) (lon, lat float64, ok bool)
	fromGeographic(lon, lat float64) (x, y float64, ok bool)
}

// parseCRS resolves "EPSG:<code>" (or a bare code) to a supported system.
func parseCRS(name string) (crs, error) {
	code := strings.TrimSpace(strings.ToUpper(name))
	code = strings.TrimPrefix(code, "EPSG:")
	n, err := strconv.Atoi(code)
	if err != nil {
		return nil, model.NewConfigurationError("", "invalid coordinate reference system %q", name)
	}

	switch {
	case n == 4326:
		return geographic{}, nil
	case n == 3857 || n == 900913:
		return webMercator{}, nil
	// NAD83 zones share WGS84's UTM parameters; GRS80 differs by well under a millimetre.
	case n >= 26901 && n <= 26923:
		return utmZone{zone: n - 26900}, nil
	case n >= 32601 && n <= 32660:
		return utmZone{zone: n - 32600}, nil
	case n >= 32701 && n <= 32760:
		return utmZone{zone: n - 32700, south: true}, nil
	}
	return nil, model.NewConfigurationError("", "unsupported coordinate reference system %q", name)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type geographic struct{}

func (geographic) toGeographic(x, y float64) (float64, float64, bool) {
	const eps = 1e-9
	if !finite(x, y) || math.Abs(x) > 180+eps || math.Abs(y) > 90+eps {
		return 0, 0, false
	}
	return x, y, true
}

func (geographic) fromGeographic(lon, lat float64) (float64, float64, bool) {
	return geographic{}.toGeographic(lon, lat)
}

// webMercator is the spherical pseudo-Mercator used by web maps. EPSG:3857 is
// defined by these closed-form equations on a sphere of radius a.
type webMercator struct{}

const (
	mercatorRadius = 6378137.0
	mercatorMaxLat = 85.0511287798066
)

var mercatorExtent = math.Pi * mercatorRadius

func (webMercator) toGeographic(x, y float64) (float64, float64, bool) {
	if !finite(x, y) || math.Abs(x) > mercatorExtent+1e-6 || math.Abs(y) > mercatorExtent+1e-6 {
		return 0, 0, false
	}
	lon := x / mercatorRadius * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/mercatorRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat, true
}

func (webMercator) fromGeographic(lon, lat float64) (float64, float64, bool) {
	if !finite(lon, lat) || math.Abs(lon) > 180+1e-9 || math.Abs(lat) > mercatorMaxLat {
		return 0, 0, false
	}
	x := mercatorRadius * lon * math.Pi / 180
	y := mercatorRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y, true
}

// utmZone is one fixed UTM zone. Southern zones carry a 10,000 km false
// northing.
type utmZone struct {
	zone  int
	south bool
}

const falseNorthingSouth = 10000000.0

func (u utmZone) toGeographic(easting, northing float64) (float64, float64, bool) {
	if !finite(easting, northing) {
		return 0, 0, false
	}
	lat, lon, err := UTM.ToLatLon(easting, northing, u.zone, "", !u.south)
	if err != nil || !finite(lon, lat) {
		return 0, 0, false
	}
	return lon, lat, true
}

func (u utmZone) fromGeographic(lon, lat float64) (float64, float64, bool) {
	if !finite(lon, lat) {
		return 0, 0, false
	}
	easting, northing, zone, _, err := UTM.FromLatLon(lat, lon, lat >= 0)
	if err != nil || zone != u.zone {
		return 0, 0, false
	}
	// FromLatLon picks the false northing from the point's own hemisphere.
	switch {
	case u.south && lat >= 0:
		northing += falseNorthingSouth
	case !u.south && lat < 0:
		northing -= falseNorthingSouth
	}
	return easting, northing, true
}
