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
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const indexPage = `<html><body><table>
<tr><td><a href="../">Parent Directory</a></td></tr>
<tr><td><a href="PERSIANN-CDR_v01r01_20180101_c20180607.nc">PERSIANN-CDR_v01r01_20180101_c20180607.nc</a></td></tr>
<tr><td><a href="PERSIANN-CDR_v01r01_20180102_c20180607.nc">PERSIANN-CDR_v01r01_20180102_c20180607.nc</a></td></tr>
<tr><td><a href="checksums.txt">checksums.txt</a></td></tr>
</table></body></html>`

func TestGranuleLinks(t *testing.T) {
	links, err := GranuleLinks(strings.NewReader(indexPage))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"PERSIANN-CDR_v01r01_20180101_c20180607.nc",
		"PERSIANN-CDR_v01r01_20180102_c20180607.nc",
	}
	if !reflect.DeepEqual(links, want) {
		t.Errorf("links = %v, want %v", links, want)
	}
}

func TestDownload(t *testing.T) {
	body := bytes.Repeat([]byte("granule payload "), 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/2018/":
			fmt.Fprint(w, indexPage)
		case strings.HasSuffix(r.URL.Path, ".nc"):
			w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	saveDir := t.TempDir()
	start := time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2018, time.January, 2, 0, 0, 0, 0, time.UTC)
	if err := Download(srv.URL+"/", saveDir, start, end, nil); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"PERSIANN_CDR_v01r01_20180101.nc",
		"PERSIANN_CDR_v01r01_20180102.nc",
	} {
		got, err := ioutil.ReadFile(filepath.Join(saveDir, name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, body) {
			t.Errorf("%s: staged body differs from served body", name)
		}
	}
}

func TestDownloadMissingDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, indexPage)
	}))
	defer srv.Close()

	d := time.Date(2018, time.January, 3, 0, 0, 0, 0, time.UTC)
	err := Download(srv.URL+"/", t.TempDir(), d, d, nil)
	if err == nil {
		t.Fatal("expected error for date missing from index")
	}
	if !strings.Contains(err.Error(), "2018-01-03") {
		t.Errorf("error %q does not name the missing date", err)
	}
}

func TestDownloadSpansYears(t *testing.T) {
	start := time.Date(2017, time.December, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)
	if err := Download("http://example.invalid/", t.TempDir(), start, end, nil); err == nil {
		t.Fatal("expected error for range spanning years")
	}
}
