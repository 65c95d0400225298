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
	"sort"
)

// Continental-US bounding box, degrees north and degrees east.
const (
	ConusLatMin = 23.0
	ConusLatMax = 50.0
	ConusLonMin = 232.0
	ConusLonMax = 295.0
)

// SubsetBounds is an index range into the latitude and longitude axes.
// The hi indices are exclusive.
type SubsetBounds struct {
	LatLo, LatHi int
	LonLo, LonHi int
}

// FindBounds returns the smallest index range [lo, hi) of the
// monotonically increasing values such that every selected value lies in
// the closed interval [loBound, hiBound]. Boundary values are included.
// It returns ErrOutOfRange when the interval selects no values.
func FindBounds(values []float64, loBound, hiBound float64) (lo, hi int, err error) {
	lo = sort.SearchFloat64s(values, loBound)
	hi = sort.SearchFloat64s(values, hiBound)
	if hi < len(values) && values[hi] == hiBound {
		hi++
	}
	if lo >= len(values) || hi == 0 || lo >= hi {
		return 0, 0, fmt.Errorf("cmorph: interval [%g, %g] selects no axis values: %w",
			loBound, hiBound, ErrOutOfRange)
	}
	return lo, hi, nil
}

// ConusBounds computes the index ranges that clip the descriptor's grid
// to the continental US.
func ConusBounds(d GridDescriptor) (SubsetBounds, error) {
	var b SubsetBounds
	var err error
	b.LatLo, b.LatHi, err = FindBounds(d.Y.Values(), ConusLatMin, ConusLatMax)
	if err != nil {
		return b, fmt.Errorf("cmorph: latitude clip: %w", err)
	}
	b.LonLo, b.LonHi, err = FindBounds(d.X.Values(), ConusLonMin, ConusLonMax)
	if err != nil {
		return b, fmt.Errorf("cmorph: longitude clip: %w", err)
	}
	return b, nil
}
