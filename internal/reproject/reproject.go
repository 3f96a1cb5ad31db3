// Package reproject transforms batches of coordinates between the reference
// systems used by the regional sources.
package reproject

import (
	"fmt"

	"github.com/twpayne/go-geom"
)

// InvalidCoordinateError reports a point outside the valid domain of its
// declared reference system.
type InvalidCoordinateError struct {
	Index int
	X, Y  float64
	CRS   string
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("reproject: point %d (%g, %g) is outside the domain of %s", e.Index, e.X, e.Y, e.CRS)
}

// Transformer converts single points from one reference system to another.
type Transformer struct {
	source, target       string
	sourceCRS, targetCRS crs
}

// New returns a Transformer between two reference systems given as
// "EPSG:<code>". Unsupported systems yield a *model.ConfigurationError.
func New(source, target string) (*Transformer, error) {
	src, err := parseCRS(source)
	if err != nil {
		return nil, err
	}
	dst, err := parseCRS(target)
	if err != nil {
		return nil, err
	}
	return &Transformer{source: source, target: target, sourceCRS: src, targetCRS: dst}, nil
}

// Transform converts one (x, y) point. For geographic systems x is longitude
// and y is latitude.
func (t *Transformer) Transform(x, y float64) (geom.Coord, bool) {
	lon, lat, ok := t.sourceCRS.toGeographic(x, y)
	if !ok {
		return nil, false
	}
	tx, ty, ok := t.targetCRS.fromGeographic(lon, lat)
	if !ok {
		return nil, false
	}
	return geom.Coord{tx, ty}, true
}

// Reproject transforms every point from source to target. The result has the
// same length and order as points. A point that cannot be transformed is nil
// in the result and has an *InvalidCoordinateError at the same index of errs;
// it never aborts the batch. err is non-nil only for an unsupported system.
func Reproject(points []geom.Coord, source, target string) (out []geom.Coord, errs []error, err error) {
	t, err := New(source, target)
	if err != nil {
		return nil, nil, err
	}

	out = make([]geom.Coord, len(points))
	errs = make([]error, len(points))
	for i, p := range points {
		if len(p) < 2 {
			errs[i] = &InvalidCoordinateError{Index: i, CRS: source}
			continue
		}
		c, ok := t.Transform(p.X(), p.Y())
		if !ok {
			errs[i] = &InvalidCoordinateError{Index: i, X: p.X(), Y: p.Y(), CRS: source}
			continue
		}
		out[i] = c
	}
	return out, errs, nil
}
