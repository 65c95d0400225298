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

// Package persiann combines daily PERSIANN-CDR NetCDF granules into a
// single time-indexed archive, and downloads the granules from the NCEI
// access server.
package persiann

import (
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"

	"github.com/climategrid/precingest/internal/ncio"
)

const (
	// undef is the missing-data sentinel in PERSIANN-CDR granules.
	undef = -9999.0

	// epochYear anchors the archive time axis.
	epochYear = 1979

	// granuleVariable is the precipitation variable in each granule.
	granuleVariable = "precipitation"

	// granuleTag appears, followed by the date, in every granule file
	// name (e.g. "PERSIANN-CDR_v01r01_20180101_c20180607.nc").
	granuleTag = "v01r01_"
)

func ensureLogger(l *logrus.Logger) *logrus.Logger {
	if l != nil {
		return l
	}
	l = logrus.New()
	l.Out = ioutil.Discard
	return l
}

// Aggregate reads one granule per day in [start, end] from dir and
// writes the combined archive to outFile. Coordinate axes are taken from
// the first granule in the directory; every granule must match them.
func Aggregate(dir, outFile string, start, end time.Time, logger *logrus.Logger) (err error) {
	logger = ensureLogger(logger)
	if end.Before(start) {
		return fmt.Errorf("persiann: end date %v is before start date %v", end, start)
	}

	granules, err := granuleList(dir)
	if err != nil {
		return err
	}
	logger.WithField("count", len(granules)).Info("found granules")

	lats, lons, err := granuleAxes(filepath.Join(dir, granules[0]))
	if err != nil {
		return err
	}
	nLat, nLon := len(lats), len(lons)

	ff, cf, err := createOutput(outFile, lats, lons)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := cdf.UpdateNumRecs(ff); uerr != nil && err == nil {
			err = fmt.Errorf("persiann: finalizing archive: %v", uerr)
		}
		if cerr := ff.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("persiann: closing archive: %v", cerr)
		}
	}()

	index := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		name, err := matchGranule(granules, d)
		if err != nil {
			return err
		}
		vals, err := granuleData(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if len(vals) != nLat*nLon {
			return fmt.Errorf("persiann: granule %s holds %d values, expected %d×%d",
				name, len(vals), nLon, nLat)
		}

		tw := cf.Writer("time", []int{index}, []int{index + 1})
		if _, err := tw.Write([]int32{daysSinceEpoch(d)}); err != nil {
			return fmt.Errorf("persiann: writing time value: %v", err)
		}
		w := cf.Writer("prcp", []int{index, 0, 0}, []int{index + 1, nLon, nLat})
		if _, err := w.Write(vals); err != nil {
			return fmt.Errorf("persiann: writing slice for %s: %v", d.Format("2006-01-02"), err)
		}
		logger.WithFields(logrus.Fields{"granule": name, "index": index}).Info("inserted granule")
		index++
	}
	return nil
}

// createOutput allocates the combined archive. The precipitation
// variable is dimensioned (time, lon, lat), matching the granule layout.
func createOutput(path string, lats, lons []float64) (*os.File, *cdf.File, error) {
	h := cdf.NewHeader([]string{"time", "lat", "lon"}, []int{0, len(lats), len(lons)})
	h.AddAttribute("", "title", "Precipitation Amount")

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

	h.AddVariable("prcp", []string{"time", "lon", "lat"}, []float32{0})
	h.AddAttribute("prcp", "units", "mm")
	h.AddAttribute("prcp", "standard_name", "precipitation")
	h.AddAttribute("prcp", "long_name", "NOAA Climate Data Record of PERSIANN-CDR daily precipitation")
	h.AddAttribute("prcp", "description", "Precipitation amount")
	h.AddAttribute("prcp", "_FillValue", []float32{float32(math.NaN())})

	h.Define()
	for _, err := range h.Check() {
		if err != nil {
			return nil, nil, fmt.Errorf("persiann: defining archive %s: %v", path, err)
		}
	}
	ff, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("persiann: creating archive %s: %v", path, err)
	}
	cf, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return nil, nil, fmt.Errorf("persiann: creating archive %s: %v", path, err)
	}

	for _, axis := range []struct {
		name   string
		values []float64
	}{{"lat", lats}, {"lon", lons}} {
		v := make([]float32, len(axis.values))
		for i, x := range axis.values {
			v[i] = float32(x)
		}
		w := cf.Writer(axis.name, []int{0}, []int{len(v)})
		if _, err := w.Write(v); err != nil {
			ff.Close()
			return nil, nil, fmt.Errorf("persiann: writing %s axis: %v", axis.name, err)
		}
	}
	return ff, cf, nil
}

// granuleList returns the sorted NetCDF file names in dir.
func granuleList(dir string) ([]string, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("persiann: listing granule directory %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".nc") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("persiann: no granules in %s", dir)
	}
	sort.Strings(names)
	return names, nil
}

// matchGranule finds the granule for date d by its name tag.
func matchGranule(granules []string, d time.Time) (string, error) {
	sub := granuleTag + d.Format("20060102")
	for _, name := range granules {
		if strings.Contains(name, sub) {
			return name, nil
		}
	}
	return "", fmt.Errorf("persiann: no granule for %s", d.Format("2006-01-02"))
}

func granuleAxes(path string) (lats, lons []float64, err error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("persiann: opening granule %s: %v", path, err)
	}
	defer nc.Close()
	for _, axis := range []struct {
		name string
		dst  *[]float64
	}{{"lat", &lats}, {"lon", &lons}} {
		v, err := nc.GetVariable(axis.name)
		if err != nil {
			return nil, nil, fmt.Errorf("persiann: reading %s from %s: %v", axis.name, path, err)
		}
		*axis.dst, err = ncio.Floats(v.Values)
		if err != nil {
			return nil, nil, fmt.Errorf("persiann: %s axis in %s: %v", axis.name, path, err)
		}
	}
	return lats, lons, nil
}

// granuleData reads the daily precipitation values with missing data
// replaced by NaN.
func granuleData(path string) ([]float32, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persiann: opening granule %s: %v", path, err)
	}
	defer nc.Close()
	v, err := nc.GetVariable(granuleVariable)
	if err != nil {
		return nil, fmt.Errorf("persiann: reading %q from %s: %v", granuleVariable, path, err)
	}
	vals, err := ncio.Floats(v.Values)
	if err != nil {
		return nil, fmt.Errorf("persiann: granule %s: %v", path, err)
	}
	out := make([]float32, len(vals))
	for i, x := range vals {
		if x == undef {
			out[i] = float32(math.NaN())
			continue
		}
		out[i] = float32(x)
	}
	return out, nil
}

func daysSinceEpoch(d time.Time) int32 {
	epoch := time.Date(epochYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return int32(day.Sub(epoch).Hours() / 24)
}
