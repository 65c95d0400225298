/*
Copyright © 2019 the Precingest authors.
This file is part of Precingest.

Precingest is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Precingest is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Precingest.  If not, see <http://www.gnu.org/licenses/>.
*/

package cmorph

import (
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Archive is a time-indexed NetCDF precipitation archive with an
// unbounded time dimension and fixed latitude/longitude axes.
type Archive struct {
	f      *os.File
	cf     *cdf.File
	nLat   int
	nLon   int
	closed bool
}

// CreateArchive allocates a new archive at path with the given coordinate
// axes and writes the axis values. The time coordinate is measured in
// days since January 1st of epochYear. title becomes the global title
// attribute and varDesc the description of the precipitation variable.
func CreateArchive(path, title, varDesc string, lats, lons []float64, epochYear int) (*Archive, error) {
	h := cdf.NewHeader([]string{"time", "lat", "lon"}, []int{0, len(lats), len(lons)})
	h.AddAttribute("", "title", title)

	h.AddVariable("time", []string{"time"}, []int32{0})
	h.AddAttribute("time", "units", fmt.Sprintf("days since %04d-01-01", epochYear))
	h.AddAttribute("time", "long_name", "Time")
	h.AddAttribute("time", "calendar", "gregorian")

	h.AddVariable("lat", []string{"lat"}, []float32{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddAttribute("lat", "long_name", "Latitude")

	h.AddVariable("lon", []string{"lon"}, []float32{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddAttribute("lon", "long_name", "Longitude")

	h.AddVariable("prcp", []string{"time", "lat", "lon"}, []float32{0})
	h.AddAttribute("prcp", "units", "mm")
	h.AddAttribute("prcp", "standard_name", "precipitation")
	h.AddAttribute("prcp", "long_name", "Precipitation")
	h.AddAttribute("prcp", "description", varDesc)
	h.AddAttribute("prcp", "_FillValue", []float32{float32(math.NaN())})

	h.Define()
	for _, err := range h.Check() {
		if err != nil {
			return nil, fmt.Errorf("cmorph: defining archive %s: %v", path, err)
		}
	}

	ff, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cmorph: creating archive %s: %v", path, err)
	}
	cf, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("cmorph: creating archive %s: %v", path, err)
	}
	a := &Archive{f: ff, cf: cf, nLat: len(lats), nLon: len(lons)}

	if err := a.writeAxis("lat", lats); err != nil {
		ff.Close()
		return nil, err
	}
	if err := a.writeAxis("lon", lons); err != nil {
		ff.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) writeAxis(name string, values []float64) error {
	v := make([]float32, len(values))
	for i, x := range values {
		v[i] = float32(x)
	}
	w := a.cf.Writer(name, []int{0}, []int{len(v)})
	if _, err := w.Write(v); err != nil {
		return fmt.Errorf("cmorph: writing %s axis: %v", name, err)
	}
	return nil
}

// Dims returns the archive's spatial extents.
func (a *Archive) Dims() (nLat, nLon int) {
	return a.nLat, a.nLon
}

// InsertSlice writes daysSinceEpoch into the time coordinate at
// timeIndex and grid into the precipitation variable at that index.
// A grid larger than the archive's spatial extents is cropped to them; a
// smaller grid is an ErrDimensionMismatch.
func (a *Archive) InsertSlice(timeIndex int, daysSinceEpoch int32, grid *sparse.DenseArray) error {
	if len(grid.Shape) != 2 {
		return fmt.Errorf("cmorph: inserting %d-dimensional grid, need 2: %w", len(grid.Shape), ErrDimensionMismatch)
	}
	if grid.Shape[0] < a.nLat || grid.Shape[1] < a.nLon {
		return fmt.Errorf("cmorph: grid %d×%d is smaller than archive extents %d×%d: %w",
			grid.Shape[0], grid.Shape[1], a.nLat, a.nLon, ErrDimensionMismatch)
	}

	tw := a.cf.Writer("time", []int{timeIndex}, []int{timeIndex + 1})
	if _, err := tw.Write([]int32{daysSinceEpoch}); err != nil {
		return fmt.Errorf("cmorph: writing time value at index %d: %v", timeIndex, err)
	}

	vals := make([]float32, a.nLat*a.nLon)
	for j := 0; j < a.nLat; j++ {
		for i := 0; i < a.nLon; i++ {
			vals[j*a.nLon+i] = float32(grid.Get(j, i))
		}
	}
	w := a.cf.Writer("prcp", []int{timeIndex, 0, 0}, []int{timeIndex + 1, a.nLat, a.nLon})
	if _, err := w.Write(vals); err != nil {
		return fmt.Errorf("cmorph: writing precipitation slice at index %d: %v", timeIndex, err)
	}
	return nil
}

// Close finalizes the record count and releases the file handle. It is
// safe to call more than once; only the first call has any effect.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	err := cdf.UpdateNumRecs(a.f)
	cerr := a.f.Close()
	if err != nil {
		return fmt.Errorf("cmorph: finalizing archive: %v", err)
	}
	if cerr != nil {
		return fmt.Errorf("cmorph: closing archive: %v", cerr)
	}
	return nil
}
