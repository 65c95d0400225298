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

// Package usdm fetches and stages United States Drought Monitor
// shapefile releases. A release is published every Thursday describing
// conditions as of the preceding Tuesday.
package usdm

import (
	"archive/zip"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the Drought Monitor shapefile archive.
const DefaultBaseURL = "http://droughtmonitor.unl.edu/data/shapefiles_m/"

// minArchiveBytes guards against truncated server responses.
const minArchiveBytes = 100

// LatestRelease returns the map date of the most recent release
// available on the given day. Maps are dated Tuesday and published two
// days later, so on Monday through Wednesday the latest map is the
// Tuesday of the previous week.
func LatestRelease(today time.Time) time.Time {
	wd := (int(today.Weekday()) + 6) % 7 // Monday == 0
	var back int
	if wd >= 3 {
		back = wd - 1
	} else {
		back = wd + 6
	}
	d := today.AddDate(0, 0, -back)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// Fetch downloads the zipped shapefile release for the given map date
// into tempDir and extracts it under usdmDir. A zip already staged in
// tempDir is reused without downloading.
func Fetch(baseURL, tempDir, usdmDir string, date time.Time, logger *logrus.Logger) error {
	logger = ensureLogger(logger)
	ds := date.Format("20060102")
	zipPath := filepath.Join(tempDir, "usdm"+ds+".zip")

	if _, err := os.Stat(zipPath); os.IsNotExist(err) {
		url := baseURL + "USDM_" + ds + "_M.zip"
		op := func() error { return download(url, zipPath) }
		notify := func(err error, wait time.Duration) {
			logger.WithFields(logrus.Fields{"url": url, "wait": wait}).Warn(err)
		}
		if err := backoff.RetryNotify(op, backoff.NewExponentialBackOff(), notify); err != nil {
			return fmt.Errorf("usdm: downloading %s: %v", url, err)
		}
		logger.WithField("file", zipPath).Info("downloaded release")
	} else {
		logger.WithField("file", zipPath).Info("release already staged")
	}

	if err := Extract(zipPath, usdmDir); err != nil {
		return err
	}
	return Validate(filepath.Join(usdmDir, "USDM_"+ds+".shp"))
}

// Extract unpacks the release zip into dir.
func Extract(zipPath, dir string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("usdm: opening %s: %v", zipPath, err)
	}
	defer zr.Close()
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("usdm: creating %s: %v", dir, err)
	}
	for _, f := range zr.File {
		dst := filepath.Join(dir, f.Name)
		if !strings.HasPrefix(dst, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("usdm: archive member %q escapes %s", f.Name, dir)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if err := extractFile(f, dst); err != nil {
			return fmt.Errorf("usdm: extracting %s: %v", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Validate decodes every row of the shapefile to confirm the staged
// release is usable.
func Validate(shpPath string) error {
	d, err := shp.NewDecoder(shpPath)
	if err != nil {
		return fmt.Errorf("usdm: opening shapefile %s: %v", shpPath, err)
	}
	defer d.Close()
	n := 0
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		if g == nil {
			return fmt.Errorf("usdm: shapefile %s: row %d has no geometry", shpPath, n)
		}
		n++
	}
	if err := d.Error(); err != nil {
		return fmt.Errorf("usdm: decoding shapefile %s: %v", shpPath, err)
	}
	if n == 0 {
		return fmt.Errorf("usdm: shapefile %s holds no shapes", shpPath)
	}
	return nil
}

func download(url, dst string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s", resp.Status)
	}
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(body) < minArchiveBytes {
		return fmt.Errorf("truncated response (%d bytes)", len(body))
	}
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return backoff.Permanent(err)
	}
	return ioutil.WriteFile(dst, body, 0644)
}

func ensureLogger(l *logrus.Logger) *logrus.Logger {
	if l != nil {
		return l
	}
	l = logrus.New()
	l.Out = ioutil.Discard
	return l
}
