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

func runHours(runs []Run) []float64 {
	o := make([]float64, len(runs))
	for i, r := range runs {
		o[i] = r.Hour
	}
	return o
}

func TestExtendRuns(t *testing.T) {
	a := NewTimeCoord("a", []float64{0, 6, 12})
	b := NewTimeCoord("b", []float64{0, 3, 6, 9, 12})
	c := NewTimeCoord("c", []float64{0, 6})
	d := NewTimeCoord("d", []float64{0, 3})
	tests := []struct {
		name  string
		runs  []Run
		hours []float64
		tcs   []*TimeCoord
		diags int
	}{
		{
			name:  "four a day",
			runs:  []Run{{18, d}, {0, a}, {12, c}, {6, b}},
			hours: []float64{0, 6, 12, 18, 24},
			tcs:   []*TimeCoord{a, b, c, d, b},
		},
		{
			name:  "partial pattern",
			runs:  []Run{{3, a}, {9, b}},
			hours: []float64{3, 9, 15, 21, 27},
			tcs:   []*TimeCoord{a, b, b, b, b},
		},
		{
			name:  "uneven",
			runs:  []Run{{0, a}, {3, b}, {12, a}},
			hours: []float64{0, 3, 12, 15, 24},
			tcs:   []*TimeCoord{a, b, a, b, a},
		},
		{
			name:  "irregular",
			runs:  []Run{{0, a}, {3, b}, {9, c}},
			hours: []float64{0, 3, 9, 12, 18, 21, 27},
			tcs:   []*TimeCoord{a, b, c, b, c, b, c},
		},
		{
			name:  "single",
			runs:  []Run{{12, a}},
			hours: []float64{12},
			tcs:   []*TimeCoord{a},
		},
		{
			name:  "repeated hour",
			runs:  []Run{{0, a}, {0, b}},
			hours: []float64{0, 0},
			tcs:   []*TimeCoord{a, b},
			diags: 1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			runs, diags := extendRuns(test.runs)
			if h := runHours(runs); !reflect.DeepEqual(h, test.hours) {
				t.Errorf("hours: %v != %v", h, test.hours)
			}
			if len(runs) != len(test.tcs) {
				t.Fatalf("%d runs, want %d", len(runs), len(test.tcs))
			}
			for i, r := range runs {
				if r.TC != test.tcs[i] {
					t.Errorf("run %d: offsets %s, want %s", i, r.TC.ID, test.tcs[i].ID)
				}
			}
			if n := diags.Count(DegenerateCycle); n != test.diags {
				t.Errorf("%d diagnostics, want %d", n, test.diags)
			}
		})
	}
}

// Run hours of an extended sequence answer with the offsets of the run
// they were added for, and hours with no run do not resolve.
func TestRunSeqCycle(t *testing.T) {
	a := NewTimeCoord("a", []float64{0, 6, 12})
	b := NewTimeCoord("b", []float64{0, 3, 6, 9, 12})
	c := NewTimeCoord("c", []float64{0, 6})
	tests := []struct {
		name    string
		runs    []Run
		have    map[float64]*TimeCoord
		missing []float64
	}{
		{
			name:    "regular",
			runs:    []Run{{0, a}, {6, b}, {12, a}, {18, b}},
			have:    map[float64]*TimeCoord{0: a, 6: b, 12: a, 18: b, 24: b},
			missing: []float64{3, 30},
		},
		{
			name:    "irregular",
			runs:    []Run{{0, a}, {12, b}, {18, c}},
			have:    map[float64]*TimeCoord{0: a, 12: b, 18: c, 30: b},
			missing: []float64{6, 24},
		},
		{
			name:    "partial pattern",
			runs:    []Run{{3, a}, {9, b}},
			have:    map[float64]*TimeCoord{3: a, 9: b, 15: b, 21: b, 27: b},
			missing: []float64{0, 6, 12},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d := NewDefinition("test")
			rs, _ := d.AddRunSeq(test.runs)
			for h, tc := range test.have {
				r, ok := rs.FindRun(h)
				if !ok {
					t.Errorf("no run at hour %g", h)
				} else if r.TC != tc {
					t.Errorf("hour %g: offsets %s, want %s", h, r.TC.ID, tc.ID)
				}
			}
			for _, h := range test.missing {
				if r, ok := rs.FindRun(h); ok {
					t.Errorf("hour %g: unexpected run %+v", h, r)
				}
			}
		})
	}
}

func TestUnionTimeCoord(t *testing.T) {
	d := NewDefinition("test")
	rs, _ := d.AddRunSeq([]Run{
		{0, NewTimeCoord("a", []float64{0, 6, 12})},
		{12, NewTimeCoord("b", []float64{0, 3, 6, 9, 12})},
	})
	u := rs.UnionTimeCoord()
	if u.ID != "union" {
		t.Errorf("id %s", u.ID)
	}
	if want := []float64{0, 3, 6, 9, 12}; !reflect.DeepEqual(u.OffsetHours, want) {
		t.Errorf("%v != %v", u.OffsetHours, want)
	}
}

func TestTimeCoordByRunTime(t *testing.T) {
	a := NewTimeCoord("a", []float64{0, 6, 12})
	b := NewTimeCoord("b", []float64{0, 3})
	d := NewDefinition("test")
	rs, _ := d.AddRunSeq([]Run{{0, a}, {6.5, b}})
	tests := []struct {
		runTime time.Time
		tc      *TimeCoord
	}{
		{time.Date(2006, 8, 2, 0, 0, 0, 0, time.UTC), a},
		{time.Date(2006, 8, 2, 6, 30, 0, 0, time.UTC), b},
		{time.Date(2006, 8, 2, 13, 0, 0, 0, time.UTC), b},
		{time.Date(2006, 8, 2, 1, 30, 0, 0, time.FixedZone("X", -5*3600)), b},
		{time.Date(2006, 8, 2, 6, 0, 0, 0, time.UTC), nil},
	}
	for _, test := range tests {
		tc, ok := rs.TimeCoordByRunTime(test.runTime)
		if ok != (test.tc != nil) || tc != test.tc {
			t.Errorf("%s: have %v, want %v", test.runTime, tc, test.tc)
		}
	}
}
