package enrich

import (
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/model"
	"github.com/sells-group/cannabis-pipeline/internal/reproject"
)

// reprojectBatch converts every projected record without coordinates to
// WGS84, one reprojection call per source reference system. A point that
// cannot be converted leaves the record without coordinates, so it falls
// through to address geocoding.
func reprojectBatch(recs []model.StoreLocation) (ok, failed int, err error) {
	byCRS := make(map[string][]int)
	var order []string
	for i := range recs {
		p := recs[i].Projected
		if p == nil || recs[i].HasCoordinates() {
			continue
		}
		if _, seen := byCRS[p.CRS]; !seen {
			order = append(order, p.CRS)
		}
		byCRS[p.CRS] = append(byCRS[p.CRS], i)
	}

	for _, crs := range order {
		idx := byCRS[crs]
		points := make([]geom.Coord, len(idx))
		for j, i := range idx {
			points[j] = geom.Coord{recs[i].Projected.X, recs[i].Projected.Y}
		}

		out, errs, err := reproject.Reproject(points, crs, reproject.WGS84)
		if err != nil {
			return ok, failed, err
		}

		for j, i := range idx {
			if out[j] == nil {
				failed++
				recs[i].ClearCoordinates()
				recs[i].Projected = nil
				zap.L().Warn("enrich: reprojection failed",
					zap.String("store", recs[i].StoreName),
					zap.Error(errs[j]),
				)
				continue
			}
			recs[i].SetCoordinates(out[j].Y(), out[j].X())
			ok++
		}
	}
	return ok, failed, nil
}
