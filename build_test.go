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

	"github.com/sirupsen/logrus/hooks/test"
)

func TestBuild(t *testing.T) {
	logger, _ := test.NewNullLogger()
	b := &Builder{Log: logger}
	inv := Collect("GFS", testRuns())
	d, diags := b.Build(inv)
	if len(diags) != 0 {
		t.Errorf("diagnostics: %v", diags)
	}

	if d.Name != "GFS" || len(d.TimeCoords) != 2 || len(d.RunSeqs) != 2 {
		t.Fatalf("definition: %s %d %d", d.Name, len(d.TimeCoords), len(d.RunSeqs))
	}
	if n0, n1 := d.VertTimeCoords[0].Name(), d.VertTimeCoords[1].Name(); n0 != "depth_below_surface_layer" || n1 != "isobaric" {
		t.Errorf("vertical coordinates should be sorted: %s %s", n0, n1)
	}

	all := d.RunSeqs[0]
	if !all.IsAll || all.AllUse != d.TimeCoords[0] || all.Name() != "time" {
		t.Errorf("first sequence: %+v", all)
	}
	temp := all.FindGrid("Temperature")
	if temp.VTC.TC != all.AllUse || !temp.VTC.Restricted() {
		t.Fatal("Temperature should be restricted over the shared offsets")
	}
	if v := temp.VertCoords(6); !reflect.DeepEqual(v, []float64{1000, 850}) {
		t.Errorf("Temperature at 6: %v", v)
	}
	if v := temp.VertCoords(0); !reflect.DeepEqual(v, []float64{1000, 850, 500}) {
		t.Errorf("Temperature at 0: %v", v)
	}
	if g := all.FindGrid("Pressure_surface"); g.VTC != nil {
		t.Error("surface field")
	}

	table := d.RunSeqs[1]
	if table.IsAll || table.Name() != "time1" {
		t.Errorf("second sequence: %+v", table)
	}
	if h, want := runHours(table.Runs), []float64{0, 6, 12, 18, 24}; !reflect.DeepEqual(h, want) {
		t.Errorf("run hours %v != %v", h, want)
	}
	if soil := table.FindGrid("Soil_temperature"); soil.VTC != d.VertTimeCoords[0] {
		t.Error("unrestricted fields should share the definition's vertical coordinate")
	}

	tc, ok := d.FindTimeCoordForVariable("Soil_temperature", time.Date(2006, 9, 1, 18, 0, 0, 0, time.UTC))
	if !ok || !reflect.DeepEqual(tc.OffsetHours, []float64{0, 3, 6, 9, 12}) {
		t.Errorf("Soil_temperature at 18Z: %v", tc)
	}
}

func TestBuildRestrictedRunTable(t *testing.T) {
	runs := testRuns()
	for _, r := range runs {
		g := r.FindGrid("Soil_temperature")
		g.LevelsAt = map[float64][]float64{3: {0}}
	}
	logger, _ := test.NewNullLogger()
	d, _ := (&Builder{Log: logger}).Build(Collect("GFS", runs))
	soil := d.FindGrid("Soil_temperature")
	if soil.VTC.TC == nil || soil.VTC.TC.ID != "union" {
		t.Fatalf("restricted field in a run table should use the union offsets: %+v", soil.VTC.TC)
	}
	if v := soil.VertCoords(3); !reflect.DeepEqual(v, []float64{0}) {
		t.Errorf("levels at 3: %v", v)
	}
	if v := soil.VertCoords(18); !reflect.DeepEqual(v, []float64{0, 10}) {
		t.Errorf("levels at 18: %v", v)
	}
}

func TestBuildConflictingRuns(t *testing.T) {
	a := NewTimeCoord("0", []float64{0, 6})
	b := NewTimeCoord("1", []float64{0, 3})
	inv := &Inventory{
		Name:       "test",
		TimeCoords: []*TimeCoord{a, b},
		RunSeqs: []*InvRunSeq{{
			Runs: []InvRun{
				{time.Date(2006, 8, 1, 0, 0, 0, 0, time.UTC), a},
				{time.Date(2006, 8, 1, 12, 0, 0, 0, time.UTC), b},
				{time.Date(2006, 8, 2, 0, 0, 0, 0, time.UTC), b},
			},
			Grids: []*UberGrid{{Name: "x"}},
		}},
	}
	logger, hook := test.NewNullLogger()
	d, diags := (&Builder{Log: logger}).Build(inv)
	if diags.Count(ConflictingRun) != 1 {
		t.Errorf("diagnostics: %v", diags)
	}
	if len(hook.Entries) != 1 {
		t.Errorf("%d log entries", len(hook.Entries))
	}
	if r, _ := d.RunSeqs[0].FindRun(0); r.TC != a {
		t.Error("the first run at an hour should be kept")
	}
}

func TestAddVertCoords(t *testing.T) {
	logger, _ := test.NewNullLogger()
	b := &Builder{Log: logger}
	d, _ := b.Build(Collect("GFS", testRuns()))
	runs := testRuns()
	for _, r := range runs {
		r.VertCoords[0].Values1 = []float64{1000, 925, 850, 700, 500}
	}
	inv := Collect("GFS", runs)
	inv.RunSeqs[0].Grids = append(inv.RunSeqs[0].Grids, &UberGrid{Name: "Ozone", VertCoordUnion: inv.VertCoords[0]})
	diags := b.AddVertCoords(d, inv)
	if diags.Count(GridNotInDefinition) != 1 {
		t.Errorf("diagnostics: %v", diags)
	}
	vc, _ := d.FindVertCoordForVariable("Temperature")
	if vc.Size() != 5 {
		t.Errorf("Temperature has %d levels", vc.Size())
	}
}

func TestBuildRestrictionOutsideOffsets(t *testing.T) {
	tc := NewTimeCoord("0", []float64{0, 6, 12})
	p := isobaric()
	inv := &Inventory{
		Name:       "test",
		TimeCoords: []*TimeCoord{tc},
		VertCoords: []*VertCoord{p},
		RunSeqs: []*InvRunSeq{{
			Runs: []InvRun{
				{time.Date(2006, 8, 1, 0, 0, 0, 0, time.UTC), tc},
				{time.Date(2006, 8, 1, 12, 0, 0, 0, time.UTC), tc},
			},
			Grids: []*UberGrid{
				{Name: "Wind", VertCoordUnion: p},
				{Name: "Temperature", VertCoordUnion: p, Restrictions: []LevelRestriction{
					{Levels: []float64{1000, 850}, OffsetHours: []float64{6, 9}},
				}},
			},
		}},
	}
	logger, hook := test.NewNullLogger()
	d, diags := (&Builder{Log: logger}).Build(inv)
	if n := diags.Count(HourNotInTimeCoord); n != 1 {
		t.Fatalf("diagnostics: %v", diags)
	}
	if len(hook.Entries) != 1 {
		t.Errorf("%d log entries", len(hook.Entries))
	}
	if g := d.RunSeqs[0].Grids; g[0].Name != "Temperature" || g[1].Name != "Wind" {
		t.Errorf("fields should be sorted by name: %s %s", g[0].Name, g[1].Name)
	}
	temp := d.FindGrid("Temperature")
	if v := temp.VertCoords(6); !reflect.DeepEqual(v, []float64{1000, 850}) {
		t.Errorf("Temperature at 6: %v", v)
	}
	if v := temp.VertCoords(12); !reflect.DeepEqual(v, p.Values1) {
		t.Errorf("Temperature at 12: %v", v)
	}
	want := []Restriction{{Levels: "1000 850", OffsetHours: "6 9"}}
	if r := temp.VTC.Restrictions(); !reflect.DeepEqual(r, want) {
		t.Errorf("restrictions %+v != %+v", r, want)
	}
}
