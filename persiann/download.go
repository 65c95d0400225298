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

package persiann

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// DefaultBaseURL is the NCEI directory holding per-year granule listings.
const DefaultBaseURL = "https://www.ncei.noaa.gov/data/precipitation-persiann/access/"

// minGranuleBytes guards against truncated server responses; a real
// granule is several megabytes.
const minGranuleBytes = 100

// GranuleLinks extracts the NetCDF links from a directory index page.
func GranuleLinks(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("persiann: parsing granule index: %v", err)
	}
	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key == "href" && strings.HasSuffix(a.Val, ".nc") {
					links = append(links, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// Download fetches one granule per day in [start, end] from the per-year
// index under baseURL and stages each under saveDir as
// PERSIANN_CDR_v01r01_YYYYMMDD.nc. All dates must fall in the same year
// because the index is per-year.
func Download(baseURL, saveDir string, start, end time.Time, logger *logrus.Logger) error {
	logger = ensureLogger(logger)
	if end.Before(start) {
		return fmt.Errorf("persiann: end date %v is before start date %v", end, start)
	}
	if start.Year() != end.Year() {
		return fmt.Errorf("persiann: date range spans years %d and %d", start.Year(), end.Year())
	}

	index := baseURL + start.Format("2006") + "/"
	links, err := fetchIndex(index)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"index": index, "links": len(links)}).Info("fetched granule index")

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		ds := d.Format("20060102")
		link := ""
		for _, l := range links {
			if strings.Contains(l, granuleTag+ds) {
				link = l
				break
			}
		}
		if link == "" {
			return fmt.Errorf("persiann: index %s lists no granule for %s", index, d.Format("2006-01-02"))
		}
		url := link
		if !strings.HasPrefix(url, "http") {
			url = index + link
		}
		dst := filepath.Join(saveDir, "PERSIANN_CDR_"+granuleTag+ds+".nc")
		op := func() error { return fetchGranule(url, dst) }
		notify := func(err error, wait time.Duration) {
			logger.WithFields(logrus.Fields{"url": url, "wait": wait}).Warn(err)
		}
		if err := backoff.RetryNotify(op, backoff.NewExponentialBackOff(), notify); err != nil {
			return fmt.Errorf("persiann: downloading %s: %v", url, err)
		}
		logger.WithField("file", dst).Info("downloaded granule")
	}
	return nil
}

func fetchIndex(url string) ([]string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("persiann: fetching index %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("persiann: fetching index %s: %s", url, resp.Status)
	}
	return GranuleLinks(resp.Body)
}

func fetchGranule(url, dst string) error {
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
	if len(body) < minGranuleBytes {
		return fmt.Errorf("truncated response (%d bytes)", len(body))
	}
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return backoff.Permanent(err)
	}
	return ioutil.WriteFile(dst, body, 0644)
}
