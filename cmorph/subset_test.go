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
	"errors"
	"testing"
)

// cmorphLatAxis is the real CMORPH latitude axis.
var cmorphLatAxis = AxisSpec{Count: 480, Start: -59.875, Increment: 0.25}

func TestFindBoundsConusLatitudes(t *testing.T) {
	values := cmorphLatAxis.Values()
	lo, hi, err := FindBounds(values, ConusLatMin, ConusLatMax)
	if err != nil {
		t.Fatal(err)
	}
	if lo != 332 || hi != 440 {
		t.Errorf("bounds = [%d, %d), want [332, 440)", lo, hi)
	}
	// The selection must be the smallest range covering every value in
	// [23, 50] inclusive.
	if values[lo] < ConusLatMin {
		t.Errorf("values[lo] = %g is below the lower bound", values[lo])
	}
	if values[lo-1] >= ConusLatMin {
		t.Errorf("values[lo-1] = %g should have been excluded", values[lo-1])
	}
	if values[hi-1] > ConusLatMax {
		t.Errorf("values[hi-1] = %g is above the upper bound", values[hi-1])
	}
	if values[hi] <= ConusLatMax {
		t.Errorf("values[hi] = %g should have been included", values[hi])
	}
}

func TestFindBoundsIncludesBoundaryValues(t *testing.T) {
	values := cmorphLatAxis.Values()
	lo, hi, err := FindBounds(values, values[332], values[439])
	if err != nil {
		t.Fatal(err)
	}
	if lo != 332 || hi != 440 {
		t.Errorf("exact boundary values: bounds = [%d, %d), want [332, 440)", lo, hi)
	}
}

func TestFindBoundsOutOfRange(t *testing.T) {
	values := cmorphLatAxis.Values()
	tests := []struct {
		name   string
		lo, hi float64
	}{
		{"entirely above", 100, 200},
		{"entirely below", -100, -70},
		{"between grid points", 23.01, 23.02},
	}
	for _, test := range tests {
		if _, _, err := FindBounds(values, test.lo, test.hi); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("%s: err = %v, want ErrOutOfRange", test.name, err)
		}
	}
}

func TestConusBounds(t *testing.T) {
	d := GridDescriptor{
		Undef: -999,
		X:     AxisSpec{Count: 1440, Start: 0.125, Increment: 0.25},
		Y:     cmorphLatAxis,
	}
	b, err := ConusBounds(d)
	if err != nil {
		t.Fatal(err)
	}
	lats := d.Y.Values()[b.LatLo:b.LatHi]
	lons := d.X.Values()[b.LonLo:b.LonHi]
	for _, v := range lats {
		if v < ConusLatMin || v > ConusLatMax {
			t.Errorf("latitude %g outside CONUS bounds", v)
		}
	}
	for _, v := range lons {
		if v < ConusLonMin || v > ConusLonMax {
			t.Errorf("longitude %g outside CONUS bounds", v)
		}
	}

	// Too-narrow grids cannot be clipped.
	d.X = AxisSpec{Count: 10, Start: 0.125, Increment: 0.25}
	if _, err := ConusBounds(d); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("err = %v, want ErrOutOfRange", err)
	}
}
