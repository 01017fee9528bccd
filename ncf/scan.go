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

// Package ncf reads inventories of forecast model runs and dataset
// metadata from NetCDF (classic format) files.
package ncf

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fmrc"
)

// Scanner reads run inventories from files.
type Scanner struct {
	// DetectMissing specifies whether to check each level of each field
	// at each offset for data. Levels whose values are all missing are
	// left out of the field's LevelsAt.
	DetectMissing bool

	// Log receives messages. If nil, the fmrc package Log is used.
	Log logrus.FieldLogger
}

func (s *Scanner) log() logrus.FieldLogger {
	if s.Log == nil {
		return fmrc.Log
	}
	return s.Log
}

// open opens the named NetCDF file. The caller must close the returned
// os.File.
func open(path string) (*file, *os.File, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ncf: %v", err)
	}
	fi, err := ff.Stat()
	if err != nil {
		ff.Close()
		return nil, nil, fmt.Errorf("ncf: %v", err)
	}
	nc, err := cdf.Open(ff)
	if err != nil {
		ff.Close()
		return nil, nil, fmt.Errorf("ncf: opening %s: %v", path, err)
	}
	return &file{File: nc, numRecs: int(nc.Header.NumRecs(fi.Size()))}, ff, nil
}

// ScanFile returns the inventory of the model run in the named file.
func (s *Scanner) ScanFile(path string) (*fmrc.RunInventory, error) {
	nc, ff, err := open(path)
	if err != nil {
		return nil, err
	}
	defer ff.Close()
	ri, err := s.scan(nc)
	if err != nil {
		return nil, fmt.Errorf("%v (file %s)", err, path)
	}
	ri.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ri, nil
}

// timeCoord is a time coordinate variable.
type timeCoord struct {
	name   string
	scale  float64
	ref    time.Time
	values []float64

	// offset is the number of hours from the run time to ref.
	offset float64
}

// hour returns the offset in hours of time index i.
func (t *timeCoord) hour(i int) float64 {
	return t.values[i]*t.scale + t.offset
}

func (s *Scanner) scan(nc *file) (*fmrc.RunInventory, error) {
	h := nc.Header
	times := make(map[string]*timeCoord)
	var timeNames []string
	verts := make(map[string]*fmrc.VertCoord)
	ri := new(fmrc.RunInventory)

	for _, v := range h.Variables() {
		if !nc.isCoordinate(v) {
			continue
		}
		units := nc.attrString(v, "units")
		switch {
		case isTimeUnits(units):
			scale, ref, err := parseTimeUnits(units)
			if err != nil {
				return nil, err
			}
			vals, err := nc.readVar(v, nil, nil)
			if err != nil {
				return nil, err
			}
			times[v] = &timeCoord{name: v, scale: scale, ref: ref, values: vals}
			timeNames = append(timeNames, v)
		case isVertical(nc, v):
			vc, err := vertCoord(nc, v)
			if err != nil {
				return nil, err
			}
			verts[v] = vc
			ri.VertCoords = append(ri.VertCoords, vc)
		}
	}
	if len(timeNames) == 0 {
		return nil, fmt.Errorf("ncf: no time coordinate found")
	}

	ri.RunTime = times[timeNames[0]].ref
	for _, n := range timeNames[1:] {
		if times[n].ref.Before(ri.RunTime) {
			ri.RunTime = times[n].ref
		}
	}
	tcs := make(map[string]*fmrc.TimeCoord)
	for _, n := range timeNames {
		t := times[n]
		t.offset = t.ref.Sub(ri.RunTime).Hours()
		hours := make([]float64, len(t.values))
		for i := range t.values {
			hours[i] = t.hour(i)
		}
		tc := fmrc.NewTimeCoord(n, hours)
		tcs[n] = tc
		ri.TimeCoords = append(ri.TimeCoords, tc)
	}

	for _, v := range h.Variables() {
		dims := h.Dimensions(v)
		if nc.isCoordinate(v) || len(dims) == 0 {
			continue
		}
		t, ok := times[dims[0]]
		if !ok {
			continue
		}
		g := &fmrc.InvGrid{
			Name:        v,
			Description: description(nc, v),
			Units:       nc.attrString(v, "units"),
			TC:          tcs[dims[0]],
		}
		if len(dims) > 1 {
			g.VC = verts[dims[1]]
		}
		if s.DetectMissing && g.VC != nil {
			var err error
			if g.LevelsAt, err = levelsPresent(nc, v, t, g.VC); err != nil {
				return nil, err
			}
			if len(g.LevelsAt) > 0 {
				s.log().WithFields(logrus.Fields{"field": v, "offsets": len(g.LevelsAt)}).
					Debug("ncf: field has missing levels")
			}
		}
		ri.Grids = append(ri.Grids, g)
	}
	return ri, nil
}

// isVertical returns whether coordinate variable v is a vertical axis.
func isVertical(nc *file, v string) bool {
	if strings.EqualFold(nc.attrString(v, "axis"), "Z") {
		return true
	}
	if nc.attrString(v, "positive") != "" {
		return true
	}
	switch nc.attrString(v, "_CoordinateAxisType") {
	case "Pressure", "Height", "GeoZ":
		return true
	}
	return false
}

// vertCoord reads the vertical coordinate v. If v has a "bounds"
// attribute naming an n×2 variable, the bounds are used as the values.
func vertCoord(nc *file, v string) (*fmrc.VertCoord, error) {
	vc := &fmrc.VertCoord{ID: v, Name: v, Units: nc.attrString(v, "units")}
	if b := nc.attrString(v, "bounds"); b != "" {
		if l := nc.lengths(b); len(l) == 2 && l[1] == 2 {
			bounds, err := nc.readVar(b, nil, nil)
			if err != nil {
				return nil, err
			}
			vc.Values1 = make([]float64, l[0])
			vc.Values2 = make([]float64, l[0])
			for i := range vc.Values1 {
				vc.Values1[i] = bounds[2*i]
				vc.Values2[i] = bounds[2*i+1]
			}
			return vc, nil
		}
	}
	var err error
	vc.Values1, err = nc.readVar(v, nil, nil)
	return vc, err
}

func description(nc *file, v string) string {
	for _, a := range []string{"long_name", "description"} {
		if s := nc.attrString(v, a); s != "" {
			return s
		}
	}
	return ""
}

// levelsPresent finds, for each offset, the levels of field v that have
// at least one value that is not missing. Offsets where all levels have
// data are left out.
func levelsPresent(nc *file, v string, t *timeCoord, vc *fmrc.VertCoord) (map[float64][]float64, error) {
	lengths := nc.lengths(v)
	o := make(map[float64][]float64)
	for ti := 0; ti < lengths[0] && ti < len(t.values); ti++ {
		var present []float64
		for k := 0; k < lengths[1] && k < vc.Size(); k++ {
			begin := make([]int, len(lengths))
			end := append([]int(nil), lengths...)
			begin[0], end[0] = ti, ti+1
			begin[1], end[1] = k, k+1
			data, err := nc.readVar(v, begin, end)
			if err != nil {
				return nil, err
			}
			for _, x := range data {
				if !math.IsNaN(x) {
					present = append(present, vc.Values1[k])
					break
				}
			}
		}
		if len(present) != vc.Size() {
			o[t.hour(ti)] = present
		}
	}
	return o, nil
}
