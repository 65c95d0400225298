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

// Package cmorph ingests daily CMORPH precipitation grids into a
// time-indexed NetCDF archive. A run parses the GrADS data descriptor for
// the requested observation type, decodes the daily binary (or ICDR
// NetCDF) grid it describes, optionally clips the grid to the continental
// US, and inserts the result as one time slice of the output archive.
package cmorph

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrMalformedDescriptor means the data descriptor is missing a
	// required field or contains an unparseable value.
	ErrMalformedDescriptor = errors.New("malformed data descriptor")

	// ErrFetch means a descriptor or daily data file could not be
	// retrieved, either from the network or from the work directory.
	ErrFetch = errors.New("fetch failure")

	// ErrShapeMismatch means a raw buffer does not hold exactly the
	// number of elements the descriptor declares.
	ErrShapeMismatch = errors.New("grid shape mismatch")

	// ErrDimensionMismatch means a grid is too small for the archive
	// it is being inserted into.
	ErrDimensionMismatch = errors.New("grid dimension mismatch")

	// ErrOutOfRange means a requested spatial bound selects no values
	// from the coordinate axis.
	ErrOutOfRange = errors.New("bound out of axis range")
)

// AxisSpec defines a coordinate axis as an arithmetic progression of
// Count values starting at Start and separated by Increment.
type AxisSpec struct {
	Count     int
	Start     float64
	Increment float64
}

// Values returns the coordinate sequence the axis defines.
func (a AxisSpec) Values() []float64 {
	v := make([]float64, a.Count)
	if a.Count == 1 {
		v[0] = a.Start
		return v
	}
	floats.Span(v, a.Start, a.Start+float64(a.Count-1)*a.Increment)
	return v
}

// GridDescriptor holds the grid geometry and encoding metadata parsed
// from a CMORPH data descriptor (.ctl) file.
type GridDescriptor struct {
	Title          string
	VarDescription string

	// Undef is the sentinel value marking missing observations in the
	// raw data.
	Undef float64

	// X is the longitude axis and Y the latitude axis.
	X, Y AxisSpec

	// BigEndian reports the declared byte order of the raw binary data.
	BigEndian bool

	// StartDate is the first date of the period of record.
	StartDate time.Time
}

// ObsType selects a CMORPH observation variant. Each variant carries its
// own URL layout, file naming, compression and descriptor conventions.
type ObsType int

const (
	// Raw is satellite-only precipitation (gzipped flat binary).
	Raw ObsType = iota
	// Adjusted is gauge-adjusted precipitation (bzip2 flat binary).
	Adjusted
	// ICDR is the near-real-time interim record (NetCDF granules).
	ICDR
)

// ParseObsType converts a configuration string to an ObsType.
func ParseObsType(s string) (ObsType, error) {
	switch s {
	case "raw":
		return Raw, nil
	case "adjusted":
		return Adjusted, nil
	case "icdr":
		return ICDR, nil
	}
	return Raw, fmt.Errorf("cmorph: invalid observation type %q (must be raw, adjusted or icdr)", s)
}

func (o ObsType) String() string {
	switch o {
	case Raw:
		return "raw"
	case Adjusted:
		return "adjusted"
	case ICDR:
		return "icdr"
	}
	return fmt.Sprintf("ObsType(%d)", int(o))
}

const urlBase = "https://ftp.cpc.ncep.noaa.gov/precip/"

// descriptorURL is the location of the data descriptor file for this
// observation type.
func (o ObsType) descriptorURL() string {
	if o == Raw {
		return urlBase + "CMORPH_V1.0/CTL/CMORPH_V1.0_RAW_0.25deg-DLY_00Z.ctl"
	}
	return urlBase + "CMORPH_V1.0/CTL/CMORPH_V1.0_CRT_0.25deg-3HLY.ctl"
}

// filePrefix is the daily file name up to the trailing date digits.
func (o ObsType) filePrefix() string {
	switch o {
	case Raw:
		return "CMORPH_V0.x_RAW_0.25deg-DLY_00Z_"
	case Adjusted:
		return "CMORPH_V1.0_ADJ_0.25deg-DLY_00Z_"
	default:
		return "CMORPH_V0.x_ADJ_0.25deg-DLY_00Z_"
	}
}

// fileName is the name of the (uncompressed) daily file for date d.
func (o ObsType) fileName(d time.Time) string {
	return o.filePrefix() + d.Format("20060102")
}

// compressExt is the extension of the file as served.
func (o ObsType) compressExt() string {
	switch o {
	case Raw:
		return ".gz"
	case Adjusted:
		return ".bz2"
	default:
		return ".nc"
	}
}

// fileURL is the download location of the daily file for date d.
func (o ObsType) fileURL(d time.Time) string {
	var dir string
	switch o {
	case Raw:
		dir = fmt.Sprintf("CMORPH_V0.x/RAW/0.25deg-DLY_00Z/%04d/%s", d.Year(), d.Format("200601"))
	case Adjusted:
		dir = fmt.Sprintf("CMORPH_V1.0/CRT/0.25deg-DLY_00Z/%04d/%s", d.Year(), d.Format("200601"))
	default:
		dir = "CMORPH_RT/ICDR/0.25deg-DLY_00Z"
	}
	return urlBase + dir + "/" + o.fileName(d) + o.compressExt()
}

// tdefPrefixLen is the length of the time-of-day prefix (e.g. "00z")
// carried before the date token on this variant's TDEF line.
func (o ObsType) tdefPrefixLen() int {
	if o == Adjusted || o == ICDR {
		return 3
	}
	return 0
}
