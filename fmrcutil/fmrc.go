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
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fmrc"
	"github.com/spatialmodel/fmrc/internal/hash"
	"github.com/spatialmodel/fmrc/ncf"
)

// logger receives messages from the commands and from the fmrc and
// ncf packages while they run.
var logger = logrus.StandardLogger()

// setLogger configures logger to write at the named level.
func setLogger(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("fmrc: invalid LogLevel: %v", err)
	}
	logger.SetLevel(lvl)
	logger.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	fmrc.Log = logger
	return nil
}

// scanFile reads the inventory of the model run in path, retrying
// for up to maxElapsed if the file cannot be read, as happens when it
// is still being written.
func scanFile(s *ncf.Scanner, path string, maxElapsed time.Duration) (*fmrc.RunInventory, error) {
	var ri *fmrc.RunInventory
	var b backoff.BackOff = &backoff.StopBackOff{}
	if maxElapsed > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = maxElapsed
		b = eb
	}
	err := backoff.RetryNotify(
		func() error {
			var err error
			ri, err = s.ScanFile(path)
			return err
		},
		b,
		func(err error, d time.Duration) {
			logger.WithField("file", path).Warnf("%v: retrying in %v", err, d)
		},
	)
	return ri, err
}

// scanFunc returns the inventory of the model run in a file.
type scanFunc func(path string) (*fmrc.RunInventory, error)

// retryScanner returns a scanFunc that reads each file with scanFile.
func retryScanner(maxElapsed time.Duration) scanFunc {
	s := &ncf.Scanner{Log: logger}
	return func(path string) (*fmrc.RunInventory, error) {
		return scanFile(s, path, maxElapsed)
	}
}

// cachedScanner returns a scanFunc that keeps the last size inventories
// it read in memory, so that datasets sharing a model run file only
// read it once. Failed reads are not kept.
func cachedScanner(maxElapsed time.Duration, size int) scanFunc {
	scan := retryScanner(maxElapsed)
	c := requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		return scan(request.(string))
	}, runtime.GOMAXPROCS(-1), requestcache.Memory(size))
	return func(path string) (*fmrc.RunInventory, error) {
		result, err := c.NewRequest(context.TODO(), path, path).Result()
		if err != nil {
			return nil, err
		}
		return result.(*fmrc.RunInventory), nil
	}
}

// finish turns the problems in diags into an error if strict is true.
func finish(diags fmrc.Diagnostics, strict bool) error {
	if strict {
		return diags.Err()
	}
	return nil
}

// readDefinition reads the definition in path, which must exist.
func readDefinition(path string) (*fmrc.Definition, error) {
	d, ok, err := fmrc.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fmrc: definition file %s does not exist", path)
	}
	return d, nil
}

// Build scans the model run files matching patterns, builds a
// definition named name from them and writes it to outputFile.
func Build(patterns []string, name, outputFile string, detectMissing, strict bool, maxElapsed time.Duration) error {
	files, err := globFiles(patterns)
	if err != nil {
		return err
	}
	s := &ncf.Scanner{DetectMissing: detectMissing, Log: logger}
	runs := make([]*fmrc.RunInventory, len(files))
	for i, f := range files {
		logger.WithFields(logrus.Fields{"file": f, "n": i + 1, "of": len(files)}).Info("scanning")
		if runs[i], err = scanFile(s, f, maxElapsed); err != nil {
			return err
		}
	}
	b := &fmrc.Builder{Log: logger}
	d, diags := b.Build(fmrc.Collect(name, runs))
	if err := finish(diags, strict); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"file":      outputFile,
		"fields":    len(d.Grids()),
		"sequences": len(d.RunSeqs),
	}).Info("writing definition")
	return fmrc.WriteFile(outputFile, d)
}

// Show writes a summary of the definition in defPath to w. If invPath is
// not empty, it also describes how the vertical coordinates of the model
// run in invPath relate to the definition.
func Show(w io.Writer, defPath, invPath string) error {
	d, err := readDefinition(defPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Definition %s (suffix filter %q)\n", d.Name, d.SuffixFilter)
	for _, rs := range d.RunSeqs {
		if rs.IsAll {
			fmt.Fprintf(w, "%s: all runs use offsets %v\n", rs.Name(), rs.AllUse.OffsetHours)
		} else {
			fmt.Fprintf(w, "%s: %d runs\n", rs.Name(), len(rs.Runs))
			for _, r := range rs.Runs {
				fmt.Fprintf(w, "  run hour %g: offsets %v\n", r.Hour, r.TC.OffsetHours)
			}
		}
		for _, g := range rs.Grids {
			vert := "surface"
			if g.VTC != nil {
				vert = g.VTC.Name()
				if g.VTC.Restricted() {
					vert += " (restricted)"
				}
			}
			fmt.Fprintf(w, "  %s: %s\n", g.Name, vert)
		}
	}
	if invPath == "" {
		return nil
	}
	ri, err := (&ncf.Scanner{Log: logger}).ScanFile(invPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Vertical coordinates of %s:\n", ri.Name)
	for _, rep := range fmrc.ShowVertCoords(d, ri) {
		var flags []string
		if rep.NoAxis {
			flags = append(flags, "no axis")
		}
		if rep.Layer {
			flags = append(flags, "layer")
		}
		if !rep.InDefinition {
			flags = append(flags, "not in definition")
		}
		if rep.Restricted {
			flags = append(flags, "restricted")
		}
		fmt.Fprintf(w, "  %s: %s\n", rep.Name, strings.Join(flags, ", "))
	}
	return nil
}

// Query writes the offsets of variable for the run at runTime in the
// definition in defPath to w. If offset is not nil, the levels of the
// variable at that offset are also written.
func Query(w io.Writer, defPath, variable string, runTime time.Time, offset *float64) error {
	d, err := readDefinition(defPath)
	if err != nil {
		return err
	}
	if !d.HasVariable(variable) {
		return fmt.Errorf("fmrc: variable %s is not in definition %s", variable, d.Name)
	}
	tc, ok := d.FindTimeCoordForVariable(variable, runTime)
	if !ok {
		fmt.Fprintf(w, "%s: no run at %s\n", variable, runTime.Format(time.RFC3339))
	} else {
		fmt.Fprintf(w, "%s: %s offsets %v\n", variable, tc.ID, tc.OffsetHours)
	}
	if vc, ok := d.FindVertCoordForVariable(variable); ok {
		fmt.Fprintf(w, "%s: vertical coordinate %s (%s) %v\n", variable, vc.Name, vc.Units, vc.Values1)
	}
	if offset != nil {
		fmt.Fprintf(w, "%s: levels at %g: %v\n", variable, *offset, d.FindGrid(variable).VertCoords(*offset))
	}
	return nil
}

// converter reconciles a definition with a model run.
type converter func(*fmrc.Definition, *fmrc.RunInventory) (*fmrc.Definition, fmrc.Diagnostics)

// idConverter returns a converter that renames fields with r.
func idConverter(r *fmrc.Reconciler) converter {
	return func(d *fmrc.Definition, ri *fmrc.RunInventory) (*fmrc.Definition, fmrc.Diagnostics) {
		o, _, diags := r.ConvertIDs(d, ri)
		return o, diags
	}
}

// reconcile runs convert on the definition in defPath and the model run
// in invPath. If the result differs from the original it is written to
// outputPath(defPath, outputDir) and changed is true.
func reconcile(convert converter, defPath, invPath, outputDir string, strict bool, scan scanFunc) (changed bool, err error) {
	d, err := readDefinition(defPath)
	if err != nil {
		return false, err
	}
	ri, err := scan(invPath)
	if err != nil {
		return false, err
	}
	o, diags := convert(d, ri)
	if err := finish(diags, strict); err != nil {
		return false, err
	}
	if hash.Equal(d, o) {
		logger.WithField("definition", d.Name).Info("definition unchanged")
		return false, nil
	}
	out := outputPath(defPath, outputDir)
	logger.WithFields(logrus.Fields{"definition": d.Name, "file": out}).Info("writing changed definition")
	return true, fmrc.WriteFile(out, o)
}

// Convert refreshes the vertical coordinates of the definition in
// defPath from the model run in invPath and writes the result if it
// changed.
func Convert(defPath, invPath, outputDir string, strict bool, maxElapsed time.Duration) (bool, error) {
	r := &fmrc.Reconciler{Log: logger}
	return reconcile(r.Convert, defPath, invPath, outputDir, strict, retryScanner(maxElapsed))
}

// ConvertIDs renames the fields of the definition in defPath to match
// the model run in invPath and writes the result if any were renamed.
func ConvertIDs(defPath, invPath, outputDir string, strict bool, maxElapsed time.Duration) (bool, error) {
	r := &fmrc.Reconciler{Log: logger}
	return reconcile(idConverter(r), defPath, invPath, outputDir, strict, retryScanner(maxElapsed))
}

// Check compares the definition in defPath with the model run in invPath
// without changing either.
func Check(defPath, invPath string, strict bool, maxElapsed time.Duration) (fmrc.Diagnostics, error) {
	d, err := readDefinition(defPath)
	if err != nil {
		return nil, err
	}
	ri, err := retryScanner(maxElapsed)(invPath)
	if err != nil {
		return nil, err
	}
	r := &fmrc.Reconciler{Log: logger}
	diags := r.CrossCheck(d, ri)
	return diags, finish(diags, strict)
}

// Batch runs the reconciliation named by mode on every dataset in the
// catalog in catalogPath. Up to cacheSize model runs are kept in memory
// for datasets that share them. A dataset that fails is logged and does
// not stop the others; the returned error reports how many failed.
func Batch(catalogPath, mode, outputDir string, strict bool, maxElapsed time.Duration, cacheSize int) error {
	c, err := ReadCatalog(catalogPath)
	if err != nil {
		return err
	}
	r := &fmrc.Reconciler{Log: logger}
	var convert converter = r.Convert
	if mode == "convertids" {
		convert = idConverter(r)
	}
	scan := cachedScanner(maxElapsed, cacheSize)
	var failed, changed int
	for _, e := range c.Dataset {
		l := logger.WithFields(logrus.Fields{"dataset": e.Name, "mode": mode})
		ch, err := reconcile(convert, e.Definition, e.Inventory, outputDir, strict, scan)
		if err != nil {
			l.WithError(err).Error("reconciliation failed")
			failed++
			continue
		}
		if ch {
			changed++
		}
	}
	logger.WithFields(logrus.Fields{"datasets": len(c.Dataset), "changed": changed, "failed": failed}).Info("batch finished")
	if failed > 0 {
		return fmt.Errorf("fmrc: %d of %d datasets failed", failed, len(c.Dataset))
	}
	return nil
}

// Metadata writes a summary of the dataset in path to w.
func Metadata(w io.Writer, path string) error {
	m, err := (&ncf.Scanner{Log: logger}).Extract(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Variables:\n")
	for _, v := range m.Variables {
		fmt.Fprintf(w, "  %s (%s) [%s] vocabulary=%s\n", v.Name, v.Description, v.Units, v.VocabularyName)
	}
	if !m.Start.IsZero() {
		fmt.Fprintf(w, "Dates: %s to %s\n", m.Start.Format(time.RFC3339), m.End.Format(time.RFC3339))
	}
	if m.VerticalAxis != nil {
		fmt.Fprintf(w, "Vertical axis: %s (%s) %d levels\n", m.VerticalAxis.Name, m.VerticalAxis.Units, m.VerticalAxis.Size())
	}
	if b := m.BoundingBox; b != nil {
		fmt.Fprintf(w, "Bounding box: lat %g to %g, lon %g to %g\n", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	}
	return nil
}
