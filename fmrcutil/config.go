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

package fmrcutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkInputFile makes sure that the named configuration variable is
// set, and expands any environment variables in it.
func checkInputFile(varName, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("you need to specify the %s configuration variable", varName)
	}
	return os.ExpandEnv(f), nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="gfs.fmrcDefinition.xml")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("fmrc: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// outputPath returns where a changed version of the definition in
// defPath is written: the file of the same name in outputDir, which is
// relative to the directory of defPath unless it is absolute.
func outputPath(defPath, outputDir string) string {
	outputDir = os.ExpandEnv(outputDir)
	if outputDir == "" {
		return defPath
	}
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(filepath.Dir(defPath), outputDir)
	}
	return filepath.Join(outputDir, filepath.Base(defPath))
}

// globFiles expands the environment variables and glob patterns in
// patterns. It is an error for a pattern to match no files.
func globFiles(patterns []string) ([]string, error) {
	var o []string
	for _, p := range expandStringSlice(patterns) {
		m, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("fmrc: invalid file pattern %q: %v", p, err)
		}
		if len(m) == 0 {
			return nil, fmt.Errorf("fmrc: no files match %q", p)
		}
		sort.Strings(m)
		o = append(o, m...)
	}
	return o, nil
}

// getDuration returns a duration from a viper configuration. The value
// may be a duration string such as "30s" or a number of nanoseconds.
func getDuration(varName string, cfg *viper.Viper) (time.Duration, error) {
	d, err := cast.ToDurationE(cfg.Get(varName))
	if err != nil {
		return 0, fmt.Errorf("%s: %v", varName, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s=%v but should be >=0", varName, d)
	}
	return d, nil
}

// batchModes are the reconciliations a batch can run.
var batchModes = []string{"convert", "convertids"}

// checkBatchMode makes sure that mode is one of batchModes.
func checkBatchMode(mode string) (string, error) {
	mode = strings.ToLower(os.ExpandEnv(mode))
	for _, m := range batchModes {
		if m == mode {
			return mode, nil
		}
	}
	return mode, fmt.Errorf("the Batch.Mode variable needs to be set to one of %v, but is currently set to `%s`", batchModes, mode)
}

// Catalog is a list of datasets to be reconciled together.
type Catalog struct {
	Dataset []CatalogEntry
}

// CatalogEntry names a dataset, the file holding its definition, and
// a model run file to reconcile the definition with.
type CatalogEntry struct {
	Name       string
	Definition string
	Inventory  string
}

// ReadCatalog reads a TOML catalog file. Environment variables in the
// paths are expanded, and relative paths are taken to be relative to
// the directory of the catalog.
func ReadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fmrc: problem opening catalog: %v", err)
	}
	defer f.Close()
	var c Catalog
	if _, err = toml.DecodeReader(f, &c); err != nil {
		return nil, fmt.Errorf("fmrc: problem reading catalog: %v", err)
	}
	dir := filepath.Dir(path)
	resolve := func(p string) string {
		p = os.ExpandEnv(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i, e := range c.Dataset {
		if e.Definition == "" || e.Inventory == "" {
			return nil, fmt.Errorf("fmrc: catalog dataset %d (%s) needs both Definition and Inventory", i, e.Name)
		}
		c.Dataset[i].Definition = resolve(e.Definition)
		c.Dataset[i].Inventory = resolve(e.Inventory)
		if e.Name == "" {
			c.Dataset[i].Name = strings.TrimSuffix(filepath.Base(e.Definition), filepath.Ext(e.Definition))
		}
	}
	return &c, nil
}
