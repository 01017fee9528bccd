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
	"strings"

	"github.com/sirupsen/logrus"
)

// Reconciler compares definitions with the inventory of a newly scanned
// run and repairs what it can. Problems are reported as diagnostics and
// never stop processing.
type Reconciler struct {
	// Log receives diagnostics. If nil, the package Log is used.
	Log logrus.FieldLogger
}

func (r *Reconciler) log() logrus.FieldLogger {
	if r.Log == nil {
		return Log
	}
	return r.Log
}

// RefreshVertCoords updates the vertical coordinates of d from those of
// ri, matched by name. A changed coordinate is replaced by a new value,
// and fields using the old value are moved to the new one with their
// restrictions kept. Coordinates not in d are added.
func (r *Reconciler) RefreshVertCoords(d *Definition, ri *RunInventory) Diagnostics {
	var diags Diagnostics
	for _, vc := range ri.VertCoords {
		if vc.Size() == 0 {
			diags.add(MissingAxis, vc.Name, "vertical coordinate has no values")
			continue
		}
		old := d.FindVertTimeCoordByName(vc.Name)
		if old == nil {
			d.VertTimeCoords = append(d.VertTimeCoords, NewVertTimeCoord(vc.Clone(), nil))
			diags.add(VertCoordAdded, vc.Name, "added with id %s", vc.ID)
			continue
		}
		if old.VC.Equal(vc) {
			continue
		}
		d.replaceVertCoord(old.VC, vc.Clone())
		diags.add(VertCoordReplaced, vc.Name, "id %s with %d levels replaced by id %s with %d levels",
			old.VC.ID, old.VC.Size(), vc.ID, vc.Size())
	}
	d.sortVertTimeCoords()
	diags.Log(r.log())
	return diags
}

// replaceVertCoord swaps every use of old for vc.
func (d *Definition) replaceVertCoord(old, vc *VertCoord) {
	swapped := make(map[*VertTimeCoord]*VertTimeCoord)
	for i, vtc := range d.VertTimeCoords {
		if vtc.VC == old {
			d.VertTimeCoords[i] = vtc.rebase(vc, vtc.TC)
			swapped[vtc] = d.VertTimeCoords[i]
		}
	}
	for _, g := range d.Grids() {
		if g.VTC == nil {
			continue
		}
		if n, ok := swapped[g.VTC]; ok {
			g.VTC = n
		} else if g.VTC.VC == old {
			g.VTC = g.VTC.rebase(vc, g.VTC.TC)
		}
	}
}

// RebindGrids points each field of d at the vertical coordinate that the
// same field has in ri. Fields that already use a coordinate with that
// name keep their restrictions.
func (r *Reconciler) RebindGrids(d *Definition, ri *RunInventory) Diagnostics {
	var diags Diagnostics
	for _, g := range d.Grids() {
		ig := ri.FindGrid(g.Name)
		if ig == nil {
			diags.add(GridNotInInventory, g.Name, "field is in the definition but not in the inventory")
			continue
		}
		if ig.VC == nil {
			continue
		}
		vtc := d.FindVertTimeCoordByName(ig.VC.Name)
		if vtc == nil {
			diags.add(VertCoordNotFound, g.Name, "vertical coordinate %s is not in the definition", ig.VC.Name)
			continue
		}
		if g.VTC != nil && g.VTC.Name() == vtc.Name() {
			continue
		}
		g.VTC = vtc
	}
	diags.Log(r.log())
	return diags
}

// CrossCheck reports fields of ri that are missing from d or whose number
// of levels differs. Nothing is changed.
func (r *Reconciler) CrossCheck(d *Definition, ri *RunInventory) Diagnostics {
	var diags Diagnostics
	for _, ig := range ri.Grids {
		g := d.FindGrid(ig.Name)
		if g == nil {
			diags.add(GridNotInDefinition, ig.Name, "field is in the inventory but not in the definition")
			continue
		}
		switch {
		case ig.VC == nil && g.VTC == nil:
		case ig.VC != nil && g.VTC == nil:
			diags.add(VertCoordMismatch, ig.Name, "inventory has %d levels, definition has no vertical coordinate", ig.VC.Size())
		case ig.VC == nil && g.VTC != nil:
			diags.add(VertCoordMismatch, ig.Name, "definition has %d levels, inventory has no vertical coordinate", g.VTC.VC.Size())
		case ig.VC.Size() != g.VTC.VC.Size():
			diags.add(VertCoordMismatch, ig.Name, "inventory has %d levels, definition has %d", ig.VC.Size(), g.VTC.VC.Size())
		}
	}
	diags.Log(r.log())
	return diags
}

var munger = strings.NewReplacer("_", "", "-", "")

// RenameGrids renames fields of d to match fields of ri whose names only
// differ in underscores and hyphens. A field is only renamed if exactly
// one field of d matches and its current name is not itself used in ri.
// It returns whether any field was renamed.
func (r *Reconciler) RenameGrids(d *Definition, ri *RunInventory) (bool, Diagnostics) {
	var diags Diagnostics
	candidates := make(map[string][]*Grid)
	for _, g := range d.Grids() {
		m := munger.Replace(g.Name)
		candidates[m] = append(candidates[m], g)
	}
	var changed bool
	for _, ig := range ri.Grids {
		if d.HasVariable(ig.Name) {
			continue
		}
		c := candidates[munger.Replace(ig.Name)]
		switch len(c) {
		case 0:
			diags.add(NoRenameCandidate, ig.Name, "no field in the definition matches")
		case 1:
			if ri.FindGrid(c[0].Name) != nil {
				diags.add(RenameConflict, ig.Name, "the matching field %s is also in the inventory", c[0].Name)
				continue
			}
			diags.add(GridRenamed, ig.Name, "renamed from %s", c[0].Name)
			c[0].Name = ig.Name
			changed = true
		default:
			names := make([]string, len(c))
			for i, g := range c {
				names[i] = g.Name
			}
			diags.add(AmbiguousRename, ig.Name, "matches %s", strings.Join(names, ", "))
		}
	}
	diags.Log(r.log())
	return changed, diags
}

// Convert returns a copy of d with vertical coordinates refreshed from
// ri and fields bound to them, along with the cross-check of the result
// against ri.
func (r *Reconciler) Convert(d *Definition, ri *RunInventory) (*Definition, Diagnostics) {
	o := d.Clone()
	diags := r.RefreshVertCoords(o, ri)
	diags = append(diags, r.RebindGrids(o, ri)...)
	diags = append(diags, r.CrossCheck(o, ri)...)
	return o, diags
}

// ConvertIDs returns a copy of d with fields renamed to match ri, and
// whether any were renamed.
func (r *Reconciler) ConvertIDs(d *Definition, ri *RunInventory) (*Definition, bool, Diagnostics) {
	o := d.Clone()
	changed, diags := r.RenameGrids(o, ri)
	return o, changed, diags
}

// VertCoordReport describes how a vertical coordinate of an inventory
// relates to a definition.
type VertCoordReport struct {
	Name string

	// NoAxis is true if the coordinate has no values.
	NoAxis bool

	// Layer is true if the coordinate has layer bounds.
	Layer bool

	InDefinition bool

	// Restricted is true if a field with restrictions uses a coordinate
	// of the same name.
	Restricted bool
}

// ShowVertCoords describes each vertical coordinate of ri.
func ShowVertCoords(d *Definition, ri *RunInventory) []VertCoordReport {
	var o []VertCoordReport
	for _, vc := range ri.VertCoords {
		rep := VertCoordReport{
			Name:         vc.Name,
			NoAxis:       vc.Size() == 0,
			Layer:        vc.IsLayer(),
			InDefinition: d.FindVertTimeCoordByName(vc.Name) != nil,
		}
		for _, g := range d.Grids() {
			if g.VTC != nil && g.VTC.Name() == vc.Name && g.VTC.Restricted() {
				rep.Restricted = true
			}
		}
		o = append(o, rep)
	}
	return o
}
