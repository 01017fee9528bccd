/*
Copyright © 2017 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package fmrcutil contains the command-line interface for building
// and maintaining forecast model run collection definitions.
package fmrcutil

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/fmrc"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to fmrc.
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
              LogLevel specifies the lowest level of messages to log: one
              of debug, info, warning, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "strict",
			usage: `
              strict specifies whether problems found while building or
              reconciling a definition cause the command to fail instead
              of only being logged. Changed definitions are not written
              when there are problems.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Definition",
			usage: `
              Definition specifies the path to the definition file
              to read.`,
			shorthand:  "d",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{showCmd.Flags(), queryCmd.Flags(), convertCmd.Flags(), convertIDsCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "Inventory",
			usage: `
              Inventory specifies the path to a NetCDF file holding one
              model run of the dataset. Its fields and coordinates are
              compared with the definition.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{showCmd.Flags(), convertCmd.Flags(), convertIDsCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir specifies the directory changed definitions are
              written to, with the same file name as the definition they
              replace. A relative directory is relative to the directory
              of the definition. If empty, the definition is overwritten.`,
			defaultVal: "new",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), convertIDsCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "ScanRetryMaxElapsed",
			usage: `
              ScanRetryMaxElapsed specifies how long to keep retrying
              to read a NetCDF file that cannot be read, for example
              because it is still being written. Zero means no retries.`,
			defaultVal: "0s",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags(), convertCmd.Flags(), convertIDsCmd.Flags(), checkCmd.Flags(), batchCmd.Flags()},
		},
		{
			name: "Build.Files",
			usage: `
              Build.Files specifies a list of glob patterns matching the
              NetCDF files of the model runs to build a definition from.
              Patterns can contain environment variables.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Build.Name",
			usage: `
              Build.Name specifies the name of the dataset the definition
              describes.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Build.DetectMissing",
			usage: `
              Build.DetectMissing specifies whether to read every level of
              every field to find levels that are missing at some offsets.
              This is needed for level restrictions but reads all of the data.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path to the definition file to
              create.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Catalog",
			usage: `
              Catalog specifies the path to a TOML file listing datasets
              to reconcile. Each [[Dataset]] entry has a Name, a Definition
              and an Inventory path.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{batchCmd.Flags()},
		},
		{
			name: "Batch.CacheSize",
			usage: `
              Batch.CacheSize specifies how many model run inventories to
              keep in memory for datasets in the catalog that share a
              model run file.`,
			defaultVal: 16,
			flagsets:   []*pflag.FlagSet{batchCmd.Flags()},
		},
		{
			name: "Batch.Mode",
			usage: `
              Batch.Mode specifies the reconciliation to run on each
              dataset in the catalog: convert or convertids.`,
			defaultVal: "convert",
			flagsets:   []*pflag.FlagSet{batchCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("FMRC")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

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
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
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
	Root.AddCommand(buildCmd)
	Root.AddCommand(showCmd)
	Root.AddCommand(queryCmd)
	Root.AddCommand(convertCmd)
	Root.AddCommand(convertIDsCmd)
	Root.AddCommand(checkCmd)
	Root.AddCommand(batchCmd)
	Root.AddCommand(metadataCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("fmrc: problem reading configuration file: %v", err)
		}
	}
	return setLogger(Cfg.GetString("LogLevel"))
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "fmrc",
	Short: "Forecast model run collection definitions.",
	Long: `fmrc builds and maintains definitions of forecast model run collections:
which forecast offsets each model run of a dataset has for each field, and
which vertical levels each field has at each offset.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'FMRC_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of fmrc.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("fmrc v%s\n", fmrc.Version)
	},
	DisableAutoGenTag: true,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a definition from model run files.",
	Long: `build reads the model run files matching Build.Files, groups fields that
have the same forecast offsets in each run, and writes a definition of the
collection to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		maxElapsed, err := getDuration("ScanRetryMaxElapsed", Cfg)
		if err != nil {
			return err
		}
		files := Cfg.GetStringSlice("Build.Files")
		if len(files) == 0 {
			return fmt.Errorf("you need to specify the Build.Files configuration variable")
		}
		return Build(files, os.ExpandEnv(Cfg.GetString("Build.Name")), outputFile,
			Cfg.GetBool("Build.DetectMissing"), Cfg.GetBool("strict"), maxElapsed)
	},
	DisableAutoGenTag: true,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize a definition.",
	Long: `show prints the run sequences and fields of a definition. If an Inventory
is given, it also prints how the vertical coordinates of that model run relate
to the definition.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := checkInputFile("Definition", Cfg.GetString("Definition"))
		if err != nil {
			return err
		}
		return Show(cmd.OutOrStdout(), def, os.ExpandEnv(Cfg.GetString("Inventory")))
	},
	DisableAutoGenTag: true,
}

var queryCmd = &cobra.Command{
	Use:   "query VARIABLE RUNTIME [OFFSET]",
	Short: "Look up the offsets and levels of a field.",
	Long: `query prints the forecast offsets of field VARIABLE in the model run issued
at RUNTIME (for example 2006-08-02T12:00:00Z), and its vertical coordinate.
If OFFSET (in hours) is given, the levels of the field at that offset are
printed as well.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := checkInputFile("Definition", Cfg.GetString("Definition"))
		if err != nil {
			return err
		}
		runTime, err := time.Parse(time.RFC3339, args[1])
		if err != nil {
			return fmt.Errorf("fmrc: invalid run time: %v", err)
		}
		var offset *float64
		if len(args) == 3 {
			o, err := cast.ToFloat64E(args[2])
			if err != nil {
				return fmt.Errorf("fmrc: invalid offset: %v", err)
			}
			offset = &o
		}
		return Query(cmd.OutOrStdout(), def, args[0], runTime, offset)
	},
	DisableAutoGenTag: true,
}

// reconcileArgs returns the configuration shared by the commands that
// reconcile a definition with a model run.
func reconcileArgs() (def, inv string, maxElapsed time.Duration, err error) {
	if def, err = checkInputFile("Definition", Cfg.GetString("Definition")); err != nil {
		return
	}
	if inv, err = checkInputFile("Inventory", Cfg.GetString("Inventory")); err != nil {
		return
	}
	maxElapsed, err = getDuration("ScanRetryMaxElapsed", Cfg)
	return
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Update the vertical coordinates of a definition.",
	Long: `convert replaces the vertical coordinates of a definition with those of
a model run, binds each field to the coordinate the model run uses for it,
and reports fields that are in only one of the two. If the definition
changed, it is written to OutputDir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, inv, maxElapsed, err := reconcileArgs()
		if err != nil {
			return err
		}
		_, err = Convert(def, inv, Cfg.GetString("OutputDir"), Cfg.GetBool("strict"), maxElapsed)
		return err
	},
	DisableAutoGenTag: true,
}

var convertIDsCmd = &cobra.Command{
	Use:   "convertids",
	Short: "Rename the fields of a definition to match a model run.",
	Long: `convertids renames each field of a definition that is not in a model run
to the one field of the model run whose name is the same once underscores
and dashes are removed. If any field was renamed, the definition is written
to OutputDir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, inv, maxElapsed, err := reconcileArgs()
		if err != nil {
			return err
		}
		_, err = ConvertIDs(def, inv, Cfg.GetString("OutputDir"), Cfg.GetBool("strict"), maxElapsed)
		return err
	},
	DisableAutoGenTag: true,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare a definition with a model run.",
	Long: `check reports fields and vertical coordinates that differ between a
definition and a model run, without changing the definition.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, inv, maxElapsed, err := reconcileArgs()
		if err != nil {
			return err
		}
		diags, err := Check(def, inv, Cfg.GetBool("strict"), maxElapsed)
		if err != nil {
			return err
		}
		cmd.Printf("%d problem(s) found\n", len(diags.Problems()))
		return nil
	},
	DisableAutoGenTag: true,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Reconcile every dataset in a catalog.",
	Long: `batch runs convert or convertids (as chosen by Batch.Mode) on every
dataset listed in Catalog. Datasets that fail are logged and the rest
are still processed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := checkInputFile("Catalog", Cfg.GetString("Catalog"))
		if err != nil {
			return err
		}
		mode, err := checkBatchMode(Cfg.GetString("Batch.Mode"))
		if err != nil {
			return err
		}
		maxElapsed, err := getDuration("ScanRetryMaxElapsed", Cfg)
		if err != nil {
			return err
		}
		cacheSize := Cfg.GetInt("Batch.CacheSize")
		if cacheSize < 1 {
			return fmt.Errorf("Batch.CacheSize=%d but should be >0", cacheSize)
		}
		return Batch(catalog, mode, Cfg.GetString("OutputDir"), Cfg.GetBool("strict"), maxElapsed, cacheSize)
	},
	DisableAutoGenTag: true,
}

var metadataCmd = &cobra.Command{
	Use:   "metadata FILE",
	Short: "Summarize a NetCDF dataset.",
	Long: `metadata prints the variables, date range, vertical axis and bounding box
of the NetCDF dataset in FILE.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Metadata(cmd.OutOrStdout(), os.ExpandEnv(args[0]))
	},
	DisableAutoGenTag: true,
}
