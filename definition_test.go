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
	"reflect"
	"testing"
	"time"
)

// testDefinition returns a definition with a run sequence in which all
// runs use the same offsets and one listing the offsets of each run.
func testDefinition(t *testing.T) *Definition {
	d := NewDefinition("NCEP-GFS-Test")
	d.SuffixFilter = ".grib2"
	tc0 := NewTimeCoord("0", []float64{0, 6, 12, 18})
	tc1 := NewTimeCoord("1", []float64{0, 3, 6, 9, 12})
	d.TimeCoords = []*TimeCoord{tc0, tc1}
	layer := &VertCoord{
		ID:      "depth",
		Name:    "depth_below_surface_layer",
		Units:   "cm",
		Values1: []float64{0, 10},
		Values2: []float64{10, 40},
	}
	d.VertTimeCoords = []*VertTimeCoord{
		NewVertTimeCoord(layer, nil),
		NewVertTimeCoord(isobaric(), nil),
	}

	all := d.AddAllUseSeq(tc0)
	restricted := NewVertTimeCoord(d.VertTimeCoords[1].VC, tc0)
	if err := restricted.AddRestriction("1000,850", "6,12"); err != nil {
		t.Fatal(err)
	}
	all.Grids = []*Grid{
		{Name: "Pressure_surface"},
		{Name: "Temperature", VTC: restricted},
	}

	table, _ := d.AddRunSeq([]Run{{0, tc0}, {12, tc1}})
	unionRestricted := NewVertTimeCoord(d.VertTimeCoords[1].VC, table.UnionTimeCoord())
	if err := unionRestricted.AddRestriction("500", "3 9"); err != nil {
		t.Fatal(err)
	}
	table.Grids = []*Grid{
		{Name: "Soil_temperature", VTC: d.VertTimeCoords[0]},
		{Name: "Vertical_velocity", VTC: unionRestricted},
		{Name: "u-component_of_wind", VTC: d.VertTimeCoords[1]},
	}
	return d
}

func TestFindTimeCoordForVariable(t *testing.T) {
	d := testDefinition(t)
	noon := time.Date(2006, 8, 2, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name, variable string
		runTime        time.Time
		id             string
		offsets        []float64
	}{
		{"all use", "Temperature", noon, "time", []float64{0, 6, 12, 18}},
		{"all use other hour", "Pressure_surface", noon.Add(-5 * time.Hour), "time", []float64{0, 6, 12, 18}},
		{"table", "Soil_temperature", noon, "time1", []float64{0, 3, 6, 9, 12}},
		{"table next day", "Soil_temperature", noon.Add(12 * time.Hour), "time1", []float64{0, 6, 12, 18}},
		{"table missing hour", "Soil_temperature", noon.Add(-time.Hour), "", nil},
		{"unknown variable", "Ozone", noon, "", nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tc, ok := d.FindTimeCoordForVariable(test.variable, test.runTime)
			if test.offsets == nil {
				if ok {
					t.Fatalf("have %v, want none", tc)
				}
				return
			}
			if !ok {
				t.Fatal("not found")
			}
			if tc.ID != test.id {
				t.Errorf("id %s, want %s", tc.ID, test.id)
			}
			if !reflect.DeepEqual(tc.OffsetHours, test.offsets) {
				t.Errorf("%v != %v", tc.OffsetHours, test.offsets)
			}
		})
	}
	if d.TimeCoords[0].ID != "0" {
		t.Error("query should not rename the stored offsets")
	}
}

func TestFindVertCoordForVariable(t *testing.T) {
	d := testDefinition(t)
	vc, ok := d.FindVertCoordForVariable("Temperature")
	if !ok || vc.Name != "isobaric" {
		t.Errorf("Temperature: %v %v", vc, ok)
	}
	if _, ok := d.FindVertCoordForVariable("Pressure_surface"); ok {
		t.Error("surface field should have no vertical coordinate")
	}
	if _, ok := d.FindVertCoordForVariable("Ozone"); ok {
		t.Error("unknown field")
	}
	if !d.HasVariable("u-component_of_wind") || d.HasVariable("u_component_of_wind") {
		t.Error("HasVariable")
	}
	if n := len(d.Grids()); n != 5 {
		t.Errorf("%d grids", n)
	}
}

func TestClone(t *testing.T) {
	d := testDefinition(t)
	c := d.Clone()
	if !reflect.DeepEqual(d, c) {
		t.Fatal("clone differs")
	}
	c.FindGrid("Temperature").Name = "T"
	c.TimeCoords[0].OffsetHours[0] = -1
	if !d.HasVariable("Temperature") || d.TimeCoords[0].OffsetHours[0] != 0 {
		t.Error("changing the clone changed the original")
	}
	if c.RunSeqs[0].AllUse != c.TimeCoords[0] {
		t.Error("shared offsets should stay shared")
	}
	if c.FindGrid("u-component_of_wind").VTC != c.VertTimeCoords[1] {
		t.Error("shared vertical coordinates should stay shared")
	}
	if c.RunSeqs[1].Runs[2].TC != c.TimeCoords[0] {
		t.Error("runs should refer to the copied offsets")
	}
}
