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
	"github.com/sirupsen/logrus"
)

// Builder creates definitions from inventories.
type Builder struct {
	// Log receives diagnostics. If nil, the package Log is used.
	Log logrus.FieldLogger
}

func (b *Builder) log() logrus.FieldLogger {
	if b.Log == nil {
		return Log
	}
	return b.Log
}

// Build creates a definition from inv. Run sequences in which every run
// uses the same offsets are stored compactly; other sequences list the
// offsets for each run hour, repeating the pattern to cover a full day.
// Fields whose levels vary with offset get their own VertTimeCoord bound
// to the offsets of their sequence.
func (b *Builder) Build(inv *Inventory) (*Definition, Diagnostics) {
	d := NewDefinition(inv.Name)
	var diags Diagnostics

	d.TimeCoords = append(d.TimeCoords, inv.TimeCoords...)
	for _, vc := range inv.VertCoords {
		d.VertTimeCoords = append(d.VertTimeCoords, NewVertTimeCoord(vc, nil))
	}

	for i, is := range inv.RunSeqs {
		if len(is.Runs) == 0 {
			for _, g := range is.Grids {
				diags.add(EmptyRunSeq, g.Name, "run sequence %d has no runs", i)
			}
			continue
		}
		var rs *RunSeq
		if tc, ok := sharedTimeCoord(is.Runs); ok {
			rs = d.AddAllUseSeq(tc)
		} else {
			var runs []Run
			runs, diags = b.runs(is.Runs, diags)
			var ds Diagnostics
			rs, ds = d.AddRunSeq(runs)
			diags = append(diags, ds...)
		}
		for _, ug := range is.Grids {
			var g *Grid
			g, diags = b.grid(d, rs, ug, diags)
			rs.Grids = append(rs.Grids, g)
		}
		rs.sortGrids()
	}
	d.sortVertTimeCoords()
	diags.Log(b.log())
	return d, diags
}

// sharedTimeCoord returns the TimeCoord used by every run, if there is one.
func sharedTimeCoord(runs []InvRun) (*TimeCoord, bool) {
	tc := runs[0].TC
	for _, r := range runs[1:] {
		if r.TC != tc {
			return nil, false
		}
	}
	return tc, true
}

// runs converts inventory runs to run hours. Where several runs fall on
// the same hour of the day, the first one is kept.
func (b *Builder) runs(invRuns []InvRun, diags Diagnostics) ([]Run, Diagnostics) {
	var runs []Run
	seen := make(map[float64]*TimeCoord)
	for _, ir := range invRuns {
		h := hourOfDay(ir.RunTime)
		if tc, ok := seen[h]; ok {
			if tc != ir.TC {
				diags.add(ConflictingRun, ir.TC.ID,
					"run at %s uses offsets %s but an earlier run at the same hour uses %s",
					ir.RunTime.UTC(), ir.TC.ID, tc.ID)
			}
			continue
		}
		seen[h] = ir.TC
		runs = append(runs, Run{Hour: h, TC: ir.TC})
	}
	return runs, diags
}

// grid creates the definition field for ug in run sequence rs.
func (b *Builder) grid(d *Definition, rs *RunSeq, ug *UberGrid, diags Diagnostics) (*Grid, Diagnostics) {
	g := &Grid{Name: ug.Name}
	if ug.VertCoordUnion == nil {
		return g, diags
	}
	vtc := d.FindVertTimeCoordByName(ug.VertCoordUnion.Name)
	if vtc == nil {
		vtc = NewVertTimeCoord(ug.VertCoordUnion, nil)
		d.VertTimeCoords = append(d.VertTimeCoords, vtc)
	}
	if len(ug.Restrictions) == 0 {
		g.VTC = vtc
		return g, diags
	}
	tc := rs.AllUse
	if !rs.IsAll {
		tc = rs.UnionTimeCoord()
	}
	g.VTC = NewVertTimeCoord(vtc.VC, tc)
	for _, r := range ug.Restrictions {
		levels := append([]float64(nil), r.Levels...)
		missing := g.VTC.addRestriction(levels, r.OffsetHours, formatValues(r.Levels), formatValues(r.OffsetHours))
		for _, h := range missing {
			diags.add(HourNotInTimeCoord, ug.Name, "restricted offset hour %v is not an offset of %s", h, tc.ID)
		}
	}
	return g, diags
}

// AddVertCoords replaces the vertical coordinates of d with those of inv
// and binds each field of d that has a vertical coordinate in inv to it.
func (b *Builder) AddVertCoords(d *Definition, inv *Inventory) Diagnostics {
	var diags Diagnostics
	d.VertTimeCoords = nil
	for _, vc := range inv.VertCoords {
		d.VertTimeCoords = append(d.VertTimeCoords, NewVertTimeCoord(vc, nil))
	}
	for _, is := range inv.RunSeqs {
		for _, ug := range is.Grids {
			if ug.VertCoordUnion == nil {
				continue
			}
			g := d.FindGrid(ug.Name)
			if g == nil {
				diags.add(GridNotInDefinition, ug.Name, "field is in the inventory but not in the definition")
				continue
			}
			vtc := d.FindVertTimeCoordByName(ug.VertCoordUnion.Name)
			if vtc == nil {
				vtc = NewVertTimeCoord(ug.VertCoordUnion, nil)
				d.VertTimeCoords = append(d.VertTimeCoords, vtc)
			}
			g.VTC = vtc
		}
	}
	d.sortVertTimeCoords()
	diags.Log(b.log())
	return diags
}
