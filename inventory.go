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

package fmrc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// InvGrid is a field found in one model run.
type InvGrid struct {
	Name, Description, Units string

	TC *TimeCoord

	// VC is nil for fields without a vertical dimension.
	VC *VertCoord

	// LevelsAt optionally holds the levels that have data at each
	// offset. A missing entry means all levels of VC have data.
	LevelsAt map[float64][]float64
}

// RunInventory lists the fields of a single model run.
type RunInventory struct {
	Name       string
	RunTime    time.Time
	TimeCoords []*TimeCoord
	VertCoords []*VertCoord
	Grids      []*InvGrid
}

// FindGrid returns the named field, or nil.
func (ri *RunInventory) FindGrid(name string) *InvGrid {
	for _, g := range ri.Grids {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// InvRun is one run of an inventory run sequence.
type InvRun struct {
	RunTime time.Time
	TC      *TimeCoord
}

// LevelRestriction lists the levels that exist at some offsets, where
// they differ from the full vertical coordinate of a field.
type LevelRestriction struct {
	Levels      []float64
	OffsetHours []float64
}

// UberGrid is a field across all runs of a collection.
type UberGrid struct {
	Name, Description, Units string

	// VertCoordUnion holds every level the field has in any run, or nil
	// if the field has no vertical dimension.
	VertCoordUnion *VertCoord

	Restrictions []LevelRestriction
}

// InvRunSeq is a group of fields whose runs use the same offsets.
type InvRunSeq struct {
	Runs  []InvRun
	Grids []*UberGrid
}

// Inventory describes the fields, offsets and levels of a collection of
// model runs. Its TimeCoords and VertCoords are shared by the runs and
// fields that refer to them.
type Inventory struct {
	Name       string
	TimeCoords []*TimeCoord
	VertCoords []*VertCoord
	RunSeqs    []*InvRunSeq
}

// FindGrid returns the named field, or nil.
func (inv *Inventory) FindGrid(name string) *UberGrid {
	for _, rs := range inv.RunSeqs {
		for _, g := range rs.Grids {
			if g.Name == name {
				return g
			}
		}
	}
	return nil
}

// Collect combines the inventories of individual runs into an inventory
// of the collection. Offsets that are the same in different runs share
// a TimeCoord, vertical coordinates with the same name are merged into
// one holding all of their levels, and fields that have the same offsets
// in each run are grouped together.
func Collect(name string, runs []*RunInventory) *Inventory {
	runs = append([]*RunInventory(nil), runs...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].RunTime.Before(runs[j].RunTime) })

	inv := &Inventory{Name: name}
	c := newVertCollector()

	tcFor := func(tc *TimeCoord) *TimeCoord {
		for _, o := range inv.TimeCoords {
			if o.SameOffsets(tc) {
				return o
			}
		}
		o := NewTimeCoord(strconv.Itoa(len(inv.TimeCoords)), tc.OffsetHours)
		inv.TimeCoords = append(inv.TimeCoords, o)
		return o
	}

	type field struct {
		first *InvGrid
		runs  []InvRun
		grids []*InvGrid
	}
	var names []string
	fields := make(map[string]*field)
	for _, r := range runs {
		for _, vc := range r.VertCoords {
			c.add(vc)
		}
		for _, g := range r.Grids {
			if g.VC != nil {
				c.add(g.VC)
			}
			f, ok := fields[g.Name]
			if !ok {
				f = &field{first: g}
				fields[g.Name] = f
				names = append(names, g.Name)
			}
			f.runs = append(f.runs, InvRun{RunTime: r.RunTime, TC: tcFor(g.TC)})
			f.grids = append(f.grids, g)
		}
	}
	inv.VertCoords = c.vertCoords()

	seqs := make(map[string]*InvRunSeq)
	for _, n := range names {
		f := fields[n]
		key := runsKey(f.runs)
		rs, ok := seqs[key]
		if !ok {
			rs = &InvRunSeq{Runs: f.runs}
			seqs[key] = rs
			inv.RunSeqs = append(inv.RunSeqs, rs)
		}
		ug := &UberGrid{Name: n, Description: f.first.Description, Units: f.first.Units}
		ug.VertCoordUnion = c.union(n, f.grids)
		if ug.VertCoordUnion != nil {
			ug.Restrictions = levelRestrictions(ug.VertCoordUnion, f.grids)
		}
		rs.Grids = append(rs.Grids, ug)
	}
	return inv
}

// runsKey returns a string that is the same for two lists of runs
// if they have the same run times and offsets.
func runsKey(runs []InvRun) string {
	s := make([]string, len(runs))
	for i, r := range runs {
		s[i] = r.RunTime.UTC().Format(time.RFC3339) + "=" + r.TC.ID
	}
	return strings.Join(s, ";")
}

// vertCollector merges vertical coordinates by name.
type vertCollector struct {
	names  []string
	byName map[string]*VertCoord
}

func newVertCollector() *vertCollector {
	return &vertCollector{byName: make(map[string]*VertCoord)}
}

func (c *vertCollector) add(vc *VertCoord) {
	cur, ok := c.byName[vc.Name]
	if !ok {
		o := vc.Clone()
		if o.ID == "" {
			o.ID = o.Name
		}
		c.byName[vc.Name] = o
		c.names = append(c.names, vc.Name)
		return
	}
	if floats.Equal(cur.Values1, vc.Values1) {
		return
	}
	descending := len(cur.Values1) > 1 && cur.Values1[0] > cur.Values1[len(cur.Values1)-1]
	values := normalize(append(append([]float64(nil), cur.Values1...), vc.Values1...))
	if descending {
		sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	}
	if !floats.Equal(values, cur.Values1) {
		cur.Values1 = values
		cur.Values2 = nil
	}
	Log.WithFields(logrus.Fields{"vertCoord": vc.Name}).
		Info("fmrc: merging levels of vertical coordinates with the same name")
}

// vertCoords returns the merged coordinates in the order they were
// first seen.
func (c *vertCollector) vertCoords() []*VertCoord {
	o := make([]*VertCoord, len(c.names))
	for i, n := range c.names {
		o[i] = c.byName[n]
	}
	return o
}

// union returns the merged vertical coordinate of a field. If the field
// uses differently named coordinates in different runs, the one with the
// most levels is used.
func (c *vertCollector) union(field string, grids []*InvGrid) *VertCoord {
	var o *VertCoord
	for _, g := range grids {
		if g.VC == nil {
			continue
		}
		vc := c.byName[g.VC.Name]
		if o != nil && o != vc {
			Log.WithFields(logrus.Fields{
				"field": field,
				"a":     o.Name,
				"b":     vc.Name,
			}).Warn("fmrc: field uses different vertical coordinates in different runs")
		}
		if o == nil || vc.Size() > o.Size() {
			o = vc
		}
	}
	return o
}

// levelRestrictions finds the offsets at which a field has data at only
// some of the levels of vc. The levels present at an offset are those
// present in any run.
func levelRestrictions(vc *VertCoord, grids []*InvGrid) []LevelRestriction {
	present := make(map[float64]map[float64]bool)
	var hours []float64
	var restricted bool
	for _, g := range grids {
		if g.TC == nil {
			continue
		}
		for _, h := range g.TC.OffsetHours {
			p, ok := present[h]
			if !ok {
				p = make(map[float64]bool)
				present[h] = p
				hours = append(hours, h)
			}
			levels, ok := g.LevelsAt[h]
			if !ok {
				levels = vc.Values1
				if g.VC != nil {
					levels = g.VC.Values1
				}
			} else {
				restricted = true
			}
			for _, l := range levels {
				p[l] = true
			}
		}
	}
	if !restricted {
		return nil
	}
	sort.Float64s(hours)

	var o []LevelRestriction
	keys := make(map[string]int)
	for _, h := range hours {
		var levels []float64
		for _, l := range vc.Values1 {
			if present[h][l] {
				levels = append(levels, l)
			}
		}
		if len(levels) == len(vc.Values1) {
			continue
		}
		key := fmt.Sprint(levels)
		if i, ok := keys[key]; ok {
			o[i].OffsetHours = append(o[i].OffsetHours, h)
			continue
		}
		keys[key] = len(o)
		o = append(o, LevelRestriction{Levels: levels, OffsetHours: []float64{h}})
	}
	return o
}
