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

// Package fmrc describes the structure of a forecast model run collection:
// the forecast offsets each model run uses, and the vertical levels each
// field has at each offset. A Definition holding this structure can be
// built from an inventory of observed runs, saved and loaded as XML,
// queried, and reconciled against newer inventories.
package fmrc

import (
	"sort"
	"time"
)

// Version gives the version number.
const Version = "1.0.0"

// Definition is the canonical structure of a model run collection.
// All TimeCoords, VertCoords and VertTimeCoords referred to from its run
// sequences and grids belong to the Definition, except for the union
// offsets that restricted fields in run-table sequences are bound to.
type Definition struct {
	// Name is the name of the dataset.
	Name string

	// SuffixFilter, if set, selects the files of the collection.
	SuffixFilter string

	VertTimeCoords []*VertTimeCoord
	TimeCoords     []*TimeCoord
	RunSeqs        []*RunSeq

	nseq int
}

// NewDefinition returns an empty definition.
func NewDefinition(name string) *Definition {
	return &Definition{Name: name}
}

// AddAllUseSeq adds a run sequence in which every run uses tc.
func (d *Definition) AddAllUseSeq(tc *TimeCoord) *RunSeq {
	rs := &RunSeq{IsAll: true, AllUse: tc, num: d.nseq}
	d.nseq++
	d.RunSeqs = append(d.RunSeqs, rs)
	return rs
}

// AddRunSeq adds a run sequence with the given runs, extended to a full
// day.
func (d *Definition) AddRunSeq(runs []Run) (*RunSeq, Diagnostics) {
	runs, diags := extendRuns(append([]Run(nil), runs...))
	rs := &RunSeq{Runs: runs, num: d.nseq}
	d.nseq++
	d.RunSeqs = append(d.RunSeqs, rs)
	return rs, diags
}

// FindTimeCoord returns the TimeCoord with the given id, or nil.
func (d *Definition) FindTimeCoord(id string) *TimeCoord {
	for _, tc := range d.TimeCoords {
		if tc.ID == id {
			return tc
		}
	}
	return nil
}

// FindVertTimeCoord returns the VertTimeCoord whose vertical coordinate
// has the given id, or nil.
func (d *Definition) FindVertTimeCoord(id string) *VertTimeCoord {
	for _, vtc := range d.VertTimeCoords {
		if vtc.ID() == id {
			return vtc
		}
	}
	return nil
}

// FindVertTimeCoordByName returns the VertTimeCoord whose vertical
// coordinate has the given name, or nil.
func (d *Definition) FindVertTimeCoordByName(name string) *VertTimeCoord {
	for _, vtc := range d.VertTimeCoords {
		if vtc.Name() == name {
			return vtc
		}
	}
	return nil
}

// FindSeqForVariable returns the run sequence holding the named field,
// or nil.
func (d *Definition) FindSeqForVariable(name string) *RunSeq {
	for _, rs := range d.RunSeqs {
		if rs.FindGrid(name) != nil {
			return rs
		}
	}
	return nil
}

// FindGrid returns the named field, or nil.
func (d *Definition) FindGrid(name string) *Grid {
	if rs := d.FindSeqForVariable(name); rs != nil {
		return rs.FindGrid(name)
	}
	return nil
}

// HasVariable returns whether the definition has the named field.
func (d *Definition) HasVariable(name string) bool {
	return d.FindGrid(name) != nil
}

// Grids returns all fields of all run sequences.
func (d *Definition) Grids() []*Grid {
	var o []*Grid
	for _, rs := range d.RunSeqs {
		o = append(o, rs.Grids...)
	}
	return o
}

// FindVertCoordForVariable returns the vertical coordinate of the named
// field. The result is false if there is no such field or if it has no
// vertical coordinate.
func (d *Definition) FindVertCoordForVariable(name string) (*VertCoord, bool) {
	g := d.FindGrid(name)
	if g == nil || g.VTC == nil {
		return nil, false
	}
	return g.VTC.VC, true
}

// FindTimeCoordForVariable returns the forecast offsets of the named field
// for the run at runTime. The returned TimeCoord has the name of the run
// sequence as its id.
func (d *Definition) FindTimeCoordForVariable(name string, runTime time.Time) (*TimeCoord, bool) {
	rs := d.FindSeqForVariable(name)
	if rs == nil {
		return nil, false
	}
	tc, ok := rs.TimeCoordByRunTime(runTime)
	if !ok {
		return nil, false
	}
	return tc.alias(rs.Name()), true
}

// sortVertTimeCoords sorts the vertical coordinates by name.
func (d *Definition) sortVertTimeCoords() {
	sort.SliceStable(d.VertTimeCoords, func(i, j int) bool {
		return d.VertTimeCoords[i].Name() < d.VertTimeCoords[j].Name()
	})
}

// Clone returns a deep copy of d. Coordinates that are shared in d are
// shared in the copy.
func (d *Definition) Clone() *Definition {
	tcs := make(map[*TimeCoord]*TimeCoord)
	cloneTC := func(tc *TimeCoord) *TimeCoord {
		if tc == nil {
			return nil
		}
		if o, ok := tcs[tc]; ok {
			return o
		}
		o := &TimeCoord{ID: tc.ID, OffsetHours: append(tc.OffsetHours[:0:0], tc.OffsetHours...)}
		tcs[tc] = o
		return o
	}
	vcs := make(map[*VertCoord]*VertCoord)
	cloneVC := func(vc *VertCoord) *VertCoord {
		if o, ok := vcs[vc]; ok {
			return o
		}
		o := vc.Clone()
		vcs[vc] = o
		return o
	}
	vtcs := make(map[*VertTimeCoord]*VertTimeCoord)
	cloneVTC := func(vtc *VertTimeCoord) *VertTimeCoord {
		if vtc == nil {
			return nil
		}
		if o, ok := vtcs[vtc]; ok {
			return o
		}
		o := vtc.rebase(cloneVC(vtc.VC), cloneTC(vtc.TC))
		vtcs[vtc] = o
		return o
	}

	o := &Definition{Name: d.Name, SuffixFilter: d.SuffixFilter, nseq: d.nseq}
	for _, tc := range d.TimeCoords {
		o.TimeCoords = append(o.TimeCoords, cloneTC(tc))
	}
	for _, vtc := range d.VertTimeCoords {
		o.VertTimeCoords = append(o.VertTimeCoords, cloneVTC(vtc))
	}
	for _, rs := range d.RunSeqs {
		ors := &RunSeq{IsAll: rs.IsAll, AllUse: cloneTC(rs.AllUse), num: rs.num}
		for _, r := range rs.Runs {
			ors.Runs = append(ors.Runs, Run{Hour: r.Hour, TC: cloneTC(r.TC)})
		}
		for _, g := range rs.Grids {
			ors.Grids = append(ors.Grids, &Grid{Name: g.Name, VTC: cloneVTC(g.VTC)})
		}
		o.RunSeqs = append(o.RunSeqs, ors)
	}
	return o
}
