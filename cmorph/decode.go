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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/ctessum/sparse"

	"github.com/climategrid/precingest/internal/ncio"
)

// byteOrder returns the encoding declared by the descriptor.
func (d GridDescriptor) byteOrder() binary.ByteOrder {
	if d.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// DecodeGrid interprets buf as a flat sequence of IEEE-754
// single-precision values in the descriptor's declared byte order and
// reshapes it to a (Y.Count, X.Count) array, replacing values equal to the
// descriptor's undef sentinel with NaN. The buffer must hold exactly
// Y.Count*X.Count elements; any other length is an ErrShapeMismatch, not a
// best-effort reshape.
func DecodeGrid(buf []byte, d GridDescriptor) (*sparse.DenseArray, error) {
	n := d.Y.Count * d.X.Count
	if len(buf) != 4*n {
		return nil, fmt.Errorf("cmorph: %d-byte buffer cannot hold a %d×%d float32 grid (%d bytes): %w",
			len(buf), d.Y.Count, d.X.Count, 4*n, ErrShapeMismatch)
	}
	order := d.byteOrder()
	grid := sparse.ZerosDense(d.Y.Count, d.X.Count)
	for i := 0; i < n; i++ {
		v := float64(math.Float32frombits(order.Uint32(buf[4*i:])))
		if v == d.Undef {
			v = math.NaN()
		}
		grid.Elements[i] = v
	}
	return grid, nil
}

// EncodeGrid is the inverse of DecodeGrid: it serializes grid in the
// descriptor's byte order, writing the undef sentinel wherever the grid
// holds NaN. The grid shape must match the descriptor exactly.
func EncodeGrid(grid *sparse.DenseArray, d GridDescriptor) ([]byte, error) {
	if len(grid.Shape) != 2 || grid.Shape[0] != d.Y.Count || grid.Shape[1] != d.X.Count {
		return nil, fmt.Errorf("cmorph: grid shape %v does not match descriptor %d×%d: %w",
			grid.Shape, d.Y.Count, d.X.Count, ErrShapeMismatch)
	}
	order := d.byteOrder()
	buf := make([]byte, 4*len(grid.Elements))
	for i, v := range grid.Elements {
		if math.IsNaN(v) {
			v = d.Undef
		}
		order.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	return buf, nil
}

// icdrVariable is the precipitation variable name in ICDR daily granules.
const icdrVariable = "cmorph"

// DecodeICDRGrid reads the daily precipitation grid from an ICDR NetCDF
// granule and applies the same undef masking and shape validation as
// DecodeGrid.
func DecodeICDRGrid(path string, d GridDescriptor) (*sparse.DenseArray, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cmorph: opening ICDR granule %s: %v", path, err)
	}
	defer nc.Close()
	v, err := nc.GetVariable(icdrVariable)
	if err != nil {
		return nil, fmt.Errorf("cmorph: reading %q from ICDR granule %s: %v", icdrVariable, path, err)
	}
	vals, err := ncio.Floats(v.Values)
	if err != nil {
		return nil, fmt.Errorf("cmorph: ICDR granule %s: %v", path, err)
	}
	n := d.Y.Count * d.X.Count
	if len(vals) != n {
		return nil, fmt.Errorf("cmorph: ICDR granule holds %d values, descriptor declares %d×%d: %w",
			len(vals), d.Y.Count, d.X.Count, ErrShapeMismatch)
	}
	grid := sparse.ZerosDense(d.Y.Count, d.X.Count)
	for i, val := range vals {
		if val == d.Undef {
			val = math.NaN()
		}
		grid.Elements[i] = val
	}
	return grid, nil
}
