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
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// epochYear anchors the archive time axis ("days since 1900-01-01").
const epochYear = 1900

// Config holds the settings for one ingest run.
type Config struct {
	// WorkDir is where descriptor and daily files are staged or looked up.
	WorkDir string

	// OutFile is the path of the NetCDF archive to create.
	OutFile string

	// Date is the observation date to ingest.
	Date time.Time

	// Obs selects the observation variant.
	Obs ObsType

	// Download fetches the descriptor and daily file from the CPC FTP
	// server; otherwise both must already be present in WorkDir.
	Download bool

	// CleanUp removes staged files once the archive is written.
	CleanUp bool

	// ConusOnly clips the archive to the continental US.
	ConusOnly bool

	// Logger receives run diagnostics. A nil Logger discards them.
	Logger *logrus.Logger
}

func (c Config) logger() *logrus.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

// Ingest runs the CMORPH pipeline for a single date: parse the
// descriptor, compute (optionally CONUS-clipped) axes, create the
// archive, fetch or locate the daily file, decode it, and insert the grid
// at time index zero. Any stage failure aborts the run; the archive
// handle is closed on every path.
func Ingest(cfg Config) (err error) {
	logger := cfg.logger()

	desc, err := fetchDescriptor(cfg.WorkDir, cfg.Obs, cfg.Download, logger)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"title":    desc.Title,
		"variable": desc.VarDescription,
		"grid":     fmt.Sprintf("%d×%d", desc.Y.Count, desc.X.Count),
	}).Info("parsed data descriptor")

	lats := desc.Y.Values()
	lons := desc.X.Values()
	var bounds SubsetBounds
	if cfg.ConusOnly {
		bounds, err = ConusBounds(desc)
		if err != nil {
			return err
		}
		lats = lats[bounds.LatLo:bounds.LatHi]
		lons = lons[bounds.LonLo:bounds.LonHi]
		logger.WithFields(logrus.Fields{"nlat": len(lats), "nlon": len(lons)}).Info("clipped axes to CONUS")
	}

	arch, err := CreateArchive(cfg.OutFile, desc.Title, desc.Title, lats, lons, epochYear)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := arch.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var path string
	if cfg.Download {
		path, err = downloadDaily(cfg.WorkDir, cfg.Date, cfg.Obs, logger)
	} else {
		path, err = locateDaily(cfg.WorkDir, cfg.Date, cfg.Obs)
	}
	if err != nil {
		return err
	}
	logger.WithField("file", path).Info("daily file ready")

	var grid *sparse.DenseArray
	if cfg.Obs == ICDR {
		grid, err = DecodeICDRGrid(path, desc)
	} else {
		var buf []byte
		buf, err = ioutil.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cmorph: reading daily file %s: %v", path, err)
		}
		grid, err = DecodeGrid(buf, desc)
	}
	if err != nil {
		return err
	}
	if cfg.ConusOnly {
		grid = extractWindow(grid, bounds)
	}

	if err = arch.InsertSlice(0, daysSinceEpoch(cfg.Date), grid); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"archive": cfg.OutFile,
		"date":    cfg.Date.Format("2006-01-02"),
	}).Info("inserted daily slice")

	if cfg.CleanUp {
		for _, stale := range []string{path, filepath.Join(cfg.WorkDir, descriptorFile)} {
			if rerr := os.Remove(stale); rerr != nil {
				logger.WithField("file", stale).Warn("could not remove staged file")
			}
		}
	}
	return nil
}

// extractWindow copies the coordinate-aligned subset of grid selected by
// b, so that the inserted data lines up with the clipped axes.
func extractWindow(grid *sparse.DenseArray, b SubsetBounds) *sparse.DenseArray {
	out := sparse.ZerosDense(b.LatHi-b.LatLo, b.LonHi-b.LonLo)
	for j := 0; j < out.Shape[0]; j++ {
		for i := 0; i < out.Shape[1]; i++ {
			out.Set(grid.Get(b.LatLo+j, b.LonLo+i), j, i)
		}
	}
	return out
}

// daysSinceEpoch converts an observation date to the archive time value.
func daysSinceEpoch(d time.Time) int32 {
	epoch := time.Date(epochYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return int32(day.Sub(epoch).Hours() / 24)
}
