package fetcher

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Geometry columns added to every shapefile table.
const (
	ShapeXColumn = "X"
	ShapeYColumn = "Y"
)

// ReadShapefile reads the attribute table of a shapefile and appends X and Y
// columns holding each record's point, or the centre of its bounding box for
// non-point shapes. Coordinates are in the shapefile's own reference system.
func ReadShapefile(path string) (*Table, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	columns := make([]string, 0, len(fields)+2)
	for _, f := range fields {
		columns = append(columns, strings.TrimRight(f.String(), "\x00"))
	}
	columns = append(columns, ShapeXColumn, ShapeYColumn)
	t := NewTable(columns)

	var empty int
	for reader.Next() {
		n, shape := reader.Shape()

		row := make([]string, len(columns))
		for i := range fields {
			row[i] = strings.TrimSpace(strings.TrimRight(reader.ReadAttribute(n, i), "\x00"))
		}

		if x, y, ok := shapePoint(shape); ok {
			row[len(fields)] = strconv.FormatFloat(x, 'f', -1, 64)
			row[len(fields)+1] = strconv.FormatFloat(y, 'f', -1, 64)
		} else {
			empty++
		}
		t.Append(row)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "shapefile: read %s", path)
	}

	if empty > 0 {
		zap.L().Debug("shapefile: records without geometry",
			zap.String("path", path),
			zap.Int("count", empty),
		)
	}
	return t, nil
}

func shapePoint(shape shp.Shape) (float64, float64, bool) {
	switch s := shape.(type) {
	case nil:
		return 0, 0, false
	case *shp.Null:
		return 0, 0, false
	case *shp.Point:
		return s.X, s.Y, true
	case *shp.PointZ:
		return s.X, s.Y, true
	case *shp.PointM:
		return s.X, s.Y, true
	default:
		b := shape.BBox()
		return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2, true
	}
}
