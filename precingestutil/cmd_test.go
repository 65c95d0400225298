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

package precingestutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestDefaults(t *testing.T) {
	tests := []struct {
		key  string
		want interface{}
	}{
		{"LogLevel", "info"},
		{"Cmorph.ObsType", "raw"},
		{"Cmorph.OutputFile", "cmorph_daily.nc"},
		{"Persiann.OutputFile", "persiann.nc"},
		{"download", false},
		{"cleanup", false},
		{"conus", false},
	}
	for _, test := range tests {
		if got := Cfg.Get(test.key); got != test.want {
			t.Errorf("%s = %v, want %v", test.key, got, test.want)
		}
	}
}

func TestSetConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(f, `{"LogLevel": "debug", "Cmorph": {"ObsType": "icdr"}}`)
	f.Close()

	Cfg.Set("config", path)
	defer func() {
		Cfg.Set("config", "")
		Cfg.Set("LogLevel", "info")
		Cfg.Set("Cmorph.ObsType", "raw")
	}()
	if err := setConfig(); err != nil {
		t.Fatal(err)
	}
	if got := Cfg.GetString("LogLevel"); got != "debug" {
		t.Errorf("LogLevel = %q, want debug", got)
	}
	if got := Cfg.GetString("Cmorph.ObsType"); got != "icdr" {
		t.Errorf("Cmorph.ObsType = %q, want icdr", got)
	}
}

func TestSetConfigMissingFile(t *testing.T) {
	Cfg.Set("config", filepath.Join(t.TempDir(), "nonexistent.json"))
	defer Cfg.Set("config", "")
	if err := setConfig(); err == nil {
		t.Fatal("expected error for missing configuration file")
	}
}

func TestLogger(t *testing.T) {
	Cfg.Set("LogLevel", "warning")
	defer Cfg.Set("LogLevel", "info")
	l, err := Logger(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if l.Level != logrus.WarnLevel {
		t.Errorf("level = %v, want %v", l.Level, logrus.WarnLevel)
	}

	Cfg.Set("LogLevel", "shouting")
	if _, err := Logger(Cfg); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestParseDate(t *testing.T) {
	Cfg.Set("Cmorph.Date", "2018-07-09")
	defer Cfg.Set("Cmorph.Date", "")
	d, err := parseDate(Cfg, "Cmorph.Date")
	if err != nil {
		t.Fatal(err)
	}
	if d.Format("20060102") != "20180709" {
		t.Errorf("date = %v", d)
	}

	Cfg.Set("Cmorph.Date", "07/09/2018")
	if _, err := parseDate(Cfg, "Cmorph.Date"); err == nil {
		t.Fatal("expected error for malformed date")
	}

	Cfg.Set("Cmorph.Date", "")
	if _, err := parseDate(Cfg, "Cmorph.Date"); err == nil {
		t.Fatal("expected error for unset date")
	}
}

func TestVersionCmd(t *testing.T) {
	var b bytes.Buffer
	Root.SetOutput(&b)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "precingest v" + Version; !strings.Contains(b.String(), want) {
		t.Errorf("output %q does not contain %q", b.String(), want)
	}
}
