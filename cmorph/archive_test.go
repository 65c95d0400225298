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
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

func openArchive(t *testing.T, path string) (*os.File, *cdf.File) {
	t.Helper()
	ff, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	cf, err := cdf.Open(ff)
	if err != nil {
		ff.Close()
		t.Fatal(err)
	}
	return ff, cf
}

func readFloat32s(t *testing.T, cf *cdf.File, v string, begin, end []int, n int) []float32 {
	t.Helper()
	r := cf.Reader(v, begin, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("reading %s: %v", v, err)
	}
	return buf.([]float32)
}

func TestArchiveCreateAndInsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmorph.nc")
	lats := []float64{0, 1, 2}
	lons := []float64{0, 1, 2, 3}

	arch, err := CreateArchive(path, "test archive", "test precipitation", lats, lons, 1900)
	if err != nil {
		t.Fatal(err)
	}

	grid := sparse.ZerosDense(3, 4)
	for i := range grid.Elements {
		grid.Elements[i] = float64(i)
	}
	grid.Set(math.NaN(), 1, 1)

	const days = int32(43280)
	if err := arch.InsertSlice(0, days, grid); err != nil {
		t.Fatal(err)
	}
	if err := arch.Close(); err != nil {
		t.Fatal(err)
	}

	ff, cf := openArchive(t, path)
	defer ff.Close()

	if got := cf.Header.GetAttribute("", "title"); got != "test archive" {
		t.Errorf("title = %v, want %q", got, "test archive")
	}
	if got := cf.Header.GetAttribute("time", "units"); got != "days since 1900-01-01" {
		t.Errorf("time units = %v", got)
	}
	if got := cf.Header.GetAttribute("time", "calendar"); got != "gregorian" {
		t.Errorf("time calendar = %v", got)
	}
	if got := cf.Header.GetAttribute("lat", "units"); got != "degrees_north" {
		t.Errorf("lat units = %v", got)
	}
	if got := cf.Header.GetAttribute("lon", "units"); got != "degrees_east" {
		t.Errorf("lon units = %v", got)
	}
	if got := cf.Header.GetAttribute("prcp", "units"); got != "mm" {
		t.Errorf("prcp units = %v", got)
	}

	tr := cf.Reader("time", []int{0}, []int{1})
	tbuf := tr.Zero(1)
	if _, err := tr.Read(tbuf); err != nil {
		t.Fatal(err)
	}
	if times := tbuf.([]int32); len(times) != 1 || times[0] != days {
		t.Errorf("time values = %v, want [%d]", times, days)
	}

	gotLats := readFloat32s(t, cf, "lat", []int{0}, []int{3}, 3)
	for i, v := range gotLats {
		if float64(v) != lats[i] {
			t.Errorf("lat[%d] = %g, want %g", i, v, lats[i])
		}
	}

	prcp := readFloat32s(t, cf, "prcp", []int{0, 0, 0}, []int{1, 3, 4}, 12)
	for i, v := range prcp {
		if i == 5 { // row 1, column 1
			if !math.IsNaN(float64(v)) {
				t.Errorf("prcp[5] = %g, want NaN", v)
			}
			continue
		}
		if float64(v) != float64(i) {
			t.Errorf("prcp[%d] = %g, want %d", i, v, i)
		}
	}
}

func TestArchiveInsertCropsLargerGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crop.nc")
	arch, err := CreateArchive(path, "crop", "crop", []float64{0, 1}, []float64{0, 1, 2}, 1900)
	if err != nil {
		t.Fatal(err)
	}
	grid := sparse.ZerosDense(3, 4)
	for i := range grid.Elements {
		grid.Elements[i] = float64(i)
	}
	if err := arch.InsertSlice(0, 1, grid); err != nil {
		t.Fatal(err)
	}
	if err := arch.Close(); err != nil {
		t.Fatal(err)
	}

	ff, cf := openArchive(t, path)
	defer ff.Close()
	prcp := readFloat32s(t, cf, "prcp", []int{0, 0, 0}, []int{1, 2, 3}, 6)
	want := []float32{0, 1, 2, 4, 5, 6} // rows 0-1, columns 0-2 of the 3×4 grid
	for i, v := range prcp {
		if v != want[i] {
			t.Errorf("prcp[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestArchiveInsertDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.nc")
	arch, err := CreateArchive(path, "small", "small", []float64{0, 1, 2}, []float64{0, 1, 2, 3}, 1900)
	if err != nil {
		t.Fatal(err)
	}
	defer arch.Close()

	if err := arch.InsertSlice(0, 1, sparse.ZerosDense(2, 3)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("smaller grid: err = %v, want ErrDimensionMismatch", err)
	}
	if err := arch.InsertSlice(0, 1, sparse.ZerosDense(12)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("1-D grid: err = %v, want ErrDimensionMismatch", err)
	}
}

func TestArchiveCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "close.nc")
	arch, err := CreateArchive(path, "close", "close", []float64{0}, []float64{0}, 1900)
	if err != nil {
		t.Fatal(err)
	}
	if err := arch.Close(); err != nil {
		t.Fatal(err)
	}
	if err := arch.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestArchiveCreateUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "deeper", "out.nc")
	if _, err := CreateArchive(path, "x", "x", []float64{0}, []float64{0}, 1900); err == nil {
		t.Error("expected error for unwritable path")
	}
}
