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
	"math"
	"sort"
	"strconv"
	"time"
)

// Grid is a named field. A Grid without a VertTimeCoord is a two
// dimensional field with a single surface level.
type Grid struct {
	Name string
	VTC  *VertTimeCoord
}

// surface is the level reported for fields without a vertical coordinate.
var surface = math.Copysign(0, -1)

// VertCoords returns the levels of the field at offset hour.
func (g *Grid) VertCoords(hour float64) []float64 {
	if g.VTC == nil {
		return []float64{surface}
	}
	return g.VTC.VertCoords(hour)
}

// CountVertCoords returns the number of levels of the field at offset hour.
func (g *Grid) CountVertCoords(hour float64) int {
	if g.VTC == nil {
		return 1
	}
	return g.VTC.CountVertCoords(hour)
}

// Run is a model run issued at Hour (hours since midnight UTC, which may
// be 24 or more for runs added to complete a cycle) using forecast
// offsets TC.
type Run struct {
	Hour float64
	TC   *TimeCoord
}

// RunSeq is a group of fields that have the same forecast offsets for
// a given run hour. Either all runs use AllUse, or the offsets of each run
// hour are listed in Runs, sorted by hour.
type RunSeq struct {
	IsAll  bool
	AllUse *TimeCoord
	Runs   []Run
	Grids  []*Grid

	num int
}

// Name returns the name of the time dimension of the sequence: "time" for
// the first sequence of a definition and "timeN" for later ones.
func (rs *RunSeq) Name() string {
	if rs.num == 0 {
		return "time"
	}
	return "time" + strconv.Itoa(rs.num)
}

// TimeCoordByRunTime returns the offsets used by the run at runTime.
func (rs *RunSeq) TimeCoordByRunTime(runTime time.Time) (*TimeCoord, bool) {
	if rs.IsAll {
		return rs.AllUse, rs.AllUse != nil
	}
	r, ok := rs.FindRun(hourOfDay(runTime))
	if !ok {
		return nil, false
	}
	return r.TC, true
}

// FindRun returns the run whose hour is exactly hour.
func (rs *RunSeq) FindRun(hour float64) (Run, bool) {
	for _, r := range rs.Runs {
		if r.Hour == hour {
			return r, true
		}
	}
	return Run{}, false
}

// FindGrid returns the field with the given name, or nil.
func (rs *RunSeq) FindGrid(name string) *Grid {
	for _, g := range rs.Grids {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (rs *RunSeq) sortGrids() {
	sort.SliceStable(rs.Grids, func(i, j int) bool { return rs.Grids[i].Name < rs.Grids[j].Name })
}

// UnionTimeCoord returns a TimeCoord with id "union" holding every offset
// used by any run of the sequence.
func (rs *RunSeq) UnionTimeCoord() *TimeCoord {
	if rs.IsAll {
		return rs.AllUse.alias("union")
	}
	var offsets []float64
	for _, r := range rs.Runs {
		offsets = append(offsets, r.TC.OffsetHours...)
	}
	return NewTimeCoord("union", offsets)
}

// hourOfDay returns the hour of t in UTC, with minutes as a fraction.
func hourOfDay(t time.Time) float64 {
	t = t.UTC()
	return float64(t.Hour()) + float64(t.Minute())/60
}

// extendRuns sorts runs by hour and adds runs until the last one is at
// or past hour 24. Each added run follows the last by the interval
// between a matched run and the run after it, and uses the offsets of
// that next run. The match starts at the first run and advances one run
// per added run, so it moves on into the added runs.
func extendRuns(runs []Run) ([]Run, Diagnostics) {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Hour < runs[j].Hour })
	if len(runs) < 2 {
		return runs, nil
	}
	var diags Diagnostics
	hour := runs[len(runs)-1].Hour
	for match := 0; hour < 24; match++ {
		m, next := runs[match], runs[match+1]
		incr := next.Hour - m.Hour
		if incr <= 0 {
			diags.add(DegenerateCycle, next.TC.ID,
				"run hours %v and %v do not increase; the cycle stops at hour %v",
				m.Hour, next.Hour, hour)
			break
		}
		hour += incr
		runs = append(runs, Run{Hour: hour, TC: next.TC})
	}
	return runs, diags
}
