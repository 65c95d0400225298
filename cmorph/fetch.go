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
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// descriptorFile is the name under which the data descriptor is staged
// in the work directory.
const descriptorFile = "cmorph_data_descriptor.txt"

// fetchDescriptor retrieves and parses the grid descriptor for obs. When
// download is true the descriptor is first fetched into workDir,
// overwriting any staged copy; otherwise the staged copy is read.
func fetchDescriptor(workDir string, obs ObsType, download bool, logger *logrus.Logger) (GridDescriptor, error) {
	path := filepath.Join(workDir, descriptorFile)
	if download {
		logger.WithField("url", obs.descriptorURL()).Info("downloading data descriptor")
		if err := downloadFile(obs.descriptorURL(), path); err != nil {
			return GridDescriptor{}, fmt.Errorf("cmorph: retrieving descriptor: %v: %w", err, ErrFetch)
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return GridDescriptor{}, fmt.Errorf("cmorph: opening descriptor %s: %v: %w", path, err, ErrFetch)
	}
	defer f.Close()
	return ParseDescriptor(f, obs)
}

// downloadDaily fetches the daily file for date into workDir and stages
// an uncompressed copy, returning its path. ICDR granules are already
// NetCDF and are returned as downloaded.
func downloadDaily(workDir string, date time.Time, obs ObsType, logger *logrus.Logger) (string, error) {
	url := obs.fileURL(date)
	zipped := filepath.Join(workDir, obs.fileName(date)+obs.compressExt())
	logger.WithFields(logrus.Fields{"url": url, "file": zipped}).Info("downloading daily file")
	if err := downloadFile(url, zipped); err != nil {
		return "", fmt.Errorf("cmorph: retrieving daily file: %v: %w", err, ErrFetch)
	}
	if obs == ICDR {
		return zipped, nil
	}

	unzipped := filepath.Join(workDir, obs.fileName(date))
	in, err := os.Open(zipped)
	if err != nil {
		return "", fmt.Errorf("cmorph: opening %s: %v", zipped, err)
	}
	defer in.Close()

	var r io.Reader
	switch obs {
	case Raw:
		gz, err := gzip.NewReader(in)
		if err != nil {
			return "", fmt.Errorf("cmorph: decompressing %s: %v", zipped, err)
		}
		defer gz.Close()
		r = gz
	default: // Adjusted
		r = bzip2.NewReader(in)
	}
	out, err := os.Create(unzipped)
	if err != nil {
		return "", fmt.Errorf("cmorph: staging %s: %v", unzipped, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", fmt.Errorf("cmorph: decompressing %s: %v", zipped, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("cmorph: staging %s: %v", unzipped, err)
	}
	return unzipped, nil
}

// locateDaily finds an already-staged daily file in workDir matching the
// date's year and month.
func locateDaily(workDir string, date time.Time, obs ObsType) (string, error) {
	pattern := filepath.Join(workDir, obs.filePrefix()+date.Format("200601")+"*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("cmorph: searching for daily file: %v", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("cmorph: no daily file matches %s: %w", pattern, ErrFetch)
	}
	return matches[0], nil
}

// downloadFile performs a single-attempt HTTP GET to dst. Retrying is the
// caller's business; the ingest pipeline treats fetch failure as fatal.
func downloadFile(url, dst string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
