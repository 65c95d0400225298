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

// Package precingestutil holds the command-line interface for the
// precingest precipitation ingest tool.
package precingestutil

import (
	"fmt"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/climategrid/precingest/cmorph"
	"github.com/climategrid/precingest/persiann"
	"github.com/climategrid/precingest/usdm"
)

// Version is the version of this program.
const Version = "1.1.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to precingest.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel sets the logging verbosity: panic, fatal, error,
              warning, info, or debug.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Cmorph.WorkDir",
			usage: `
              Cmorph.WorkDir is the directory where the grid descriptor and
              daily binary files are staged.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{cmorphCmd.Flags()},
		},
		{
			name: "Cmorph.OutputFile",
			usage: `
              Cmorph.OutputFile is the path of the NetCDF archive to create.`,
			defaultVal: "cmorph_daily.nc",
			flagsets:   []*pflag.FlagSet{cmorphCmd.Flags()},
		},
		{
			name: "Cmorph.Date",
			usage: `
              Cmorph.Date is the observation date to ingest.
              Format = "YYYY-MM-DD".`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cmorphCmd.Flags()},
		},
		{
			name: "Cmorph.ObsType",
			usage: `
              Cmorph.ObsType selects the observation product: raw,
              adjusted, or icdr.`,
			defaultVal: "raw",
			flagsets:   []*pflag.FlagSet{cmorphCmd.Flags()},
		},
		{
			name: "download",
			usage: `
              download fetches the descriptor and the daily file from the
              CPC server instead of expecting them in the work directory.`,
			shorthand:  "d",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cmorphCmd.Flags()},
		},
		{
			name: "cleanup",
			usage: `
              cleanup removes the staged daily file and descriptor after a
              successful ingest.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cmorphCmd.Flags()},
		},
		{
			name: "conus",
			usage: `
              conus restricts the archive to the continental United States
              window instead of the full global grid.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cmorphCmd.Flags()},
		},
		{
			name: "StartDate",
			usage: `
              StartDate is the first date to process.
              Format = "YYYY-MM-DD".`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{persiannDownloadCmd.Flags(), persiannAggregateCmd.Flags()},
		},
		{
			name: "EndDate",
			usage: `
              EndDate is the last date to process (inclusive).
              Format = "YYYY-MM-DD".`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{persiannDownloadCmd.Flags(), persiannAggregateCmd.Flags()},
		},
		{
			name: "Persiann.BaseURL",
			usage: `
              Persiann.BaseURL is the NCEI directory holding per-year
              granule listings.`,
			defaultVal: persiann.DefaultBaseURL,
			flagsets:   []*pflag.FlagSet{persiannDownloadCmd.Flags()},
		},
		{
			name: "Persiann.GranuleDir",
			usage: `
              Persiann.GranuleDir is the directory where daily granules are
              staged and read from.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{persiannDownloadCmd.Flags(), persiannAggregateCmd.Flags()},
		},
		{
			name: "Persiann.OutputFile",
			usage: `
              Persiann.OutputFile is the path of the combined NetCDF
              archive to create.`,
			defaultVal: "persiann.nc",
			flagsets:   []*pflag.FlagSet{persiannAggregateCmd.Flags()},
		},
		{
			name: "Usdm.BaseURL",
			usage: `
              Usdm.BaseURL is the Drought Monitor shapefile archive.`,
			defaultVal: usdm.DefaultBaseURL,
			flagsets:   []*pflag.FlagSet{usdmCmd.Flags()},
		},
		{
			name: "Usdm.TempDir",
			usage: `
              Usdm.TempDir is the directory where downloaded release zips
              are staged.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{usdmCmd.Flags()},
		},
		{
			name: "Usdm.ShapeDir",
			usage: `
              Usdm.ShapeDir is the directory where release shapefiles are
              extracted.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{usdmCmd.Flags()},
		},
		{
			name: "Usdm.Date",
			usage: `
              Usdm.Date is the map date of the release to fetch. When empty,
              the most recent available release is used.
              Format = "YYYY-MM-DD".`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{usdmCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("PRECINGEST")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(cmorphCmd)
	Root.AddCommand(persiannCmd)
	persiannCmd.AddCommand(persiannDownloadCmd)
	persiannCmd.AddCommand(persiannAggregateCmd)
	Root.AddCommand(usdmCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("precingest: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// logElapsed reports how long a command took.
func logElapsed(logger *logrus.Logger, name string, start time.Time) {
	logger.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Infof("%s finished", name)
}

// Logger builds a logger at the configured verbosity.
func Logger(cfg *viper.Viper) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return nil, fmt.Errorf("precingest: invalid log level: %v", err)
	}
	l := logrus.New()
	l.Level = level
	return l, nil
}

// parseDate reads a YYYY-MM-DD configuration value. Depending on
// whether the value came from a flag or a configuration file it may not
// arrive as a string, so it is coerced first.
func parseDate(cfg *viper.Viper, key string) (time.Time, error) {
	s, err := cast.ToStringE(cfg.Get(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("precingest: reading %s: %v", key, err)
	}
	if s == "" {
		return time.Time{}, fmt.Errorf("precingest: %s must be set", key)
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("precingest: parsing %s: %v", key, err)
	}
	return d, nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "precingest",
	Short: "A precipitation data ingest tool.",
	Long: `Precingest downloads gridded precipitation observations and drought
maps and stages them as NetCDF archives and shapefiles.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format 'PRECINGEST_var'
where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of precingest.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("precingest v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

var cmorphCmd = &cobra.Command{
	Use:   "cmorph",
	Short: "Ingest a day of CMORPH precipitation.",
	Long: `cmorph decodes one day of CMORPH satellite precipitation estimates
and writes it to a NetCDF archive. The grid layout is read from the product's
GrADS data descriptor, which is downloaded alongside the daily file when
--download is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := Logger(Cfg)
		if err != nil {
			return err
		}
		date, err := parseDate(Cfg, "Cmorph.Date")
		if err != nil {
			return err
		}
		obs, err := cmorph.ParseObsType(Cfg.GetString("Cmorph.ObsType"))
		if err != nil {
			return err
		}
		defer logElapsed(logger, "cmorph", time.Now())
		return cmorph.Ingest(cmorph.Config{
			WorkDir:   Cfg.GetString("Cmorph.WorkDir"),
			OutFile:   Cfg.GetString("Cmorph.OutputFile"),
			Date:      date,
			Obs:       obs,
			Download:  Cfg.GetBool("download"),
			CleanUp:   Cfg.GetBool("cleanup"),
			ConusOnly: Cfg.GetBool("conus"),
			Logger:    logger,
		})
	},
	DisableAutoGenTag: true,
}

var persiannCmd = &cobra.Command{
	Use:   "persiann",
	Short: "Work with PERSIANN-CDR granules.",
	Long: `persiann downloads daily PERSIANN-CDR precipitation granules and
combines them into a single time-indexed archive. Use the subcommands
specified below to choose an operation.`,
	DisableAutoGenTag: true,
}

var persiannDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download daily granules.",
	Long: `download fetches one granule per day in the configured date range
from the NCEI access server and stages them in the granule directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := Logger(Cfg)
		if err != nil {
			return err
		}
		start, err := parseDate(Cfg, "StartDate")
		if err != nil {
			return err
		}
		end, err := parseDate(Cfg, "EndDate")
		if err != nil {
			return err
		}
		defer logElapsed(logger, "persiann download", time.Now())
		return persiann.Download(Cfg.GetString("Persiann.BaseURL"),
			Cfg.GetString("Persiann.GranuleDir"), start, end, logger)
	},
	DisableAutoGenTag: true,
}

var persiannAggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Combine staged granules into one archive.",
	Long: `aggregate reads one staged granule per day in the configured date
range and writes the combined NetCDF archive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := Logger(Cfg)
		if err != nil {
			return err
		}
		start, err := parseDate(Cfg, "StartDate")
		if err != nil {
			return err
		}
		end, err := parseDate(Cfg, "EndDate")
		if err != nil {
			return err
		}
		defer logElapsed(logger, "persiann aggregate", time.Now())
		return persiann.Aggregate(Cfg.GetString("Persiann.GranuleDir"),
			Cfg.GetString("Persiann.OutputFile"), start, end, logger)
	},
	DisableAutoGenTag: true,
}

var usdmCmd = &cobra.Command{
	Use:   "usdm",
	Short: "Fetch a Drought Monitor release.",
	Long: `usdm downloads the zipped Drought Monitor shapefile for the
configured map date, extracts it, and verifies that the shapefile decodes.
When no date is configured, the most recent available release is fetched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := Logger(Cfg)
		if err != nil {
			return err
		}
		var date time.Time
		if Cfg.GetString("Usdm.Date") == "" {
			date = usdm.LatestRelease(time.Now())
		} else {
			if date, err = parseDate(Cfg, "Usdm.Date"); err != nil {
				return err
			}
		}
		defer logElapsed(logger, "usdm", time.Now())
		return usdm.Fetch(Cfg.GetString("Usdm.BaseURL"), Cfg.GetString("Usdm.TempDir"),
			Cfg.GetString("Usdm.ShapeDir"), date, logger)
	},
	DisableAutoGenTag: true,
}
