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
	"reflect"
	"testing"
)

func isobaric() *VertCoord {
	return &VertCoord{ID: "isobaric", Name: "isobaric", Units: "hPa", Values1: []float64{1000, 850, 500}}
}

func TestAddRestriction(t *testing.T) {
	vtc := NewVertTimeCoord(isobaric(), NewTimeCoord("0", []float64{0, 6, 12, 18}))
	if err := vtc.AddRestriction("1000,850", "6,12"); err != nil {
		t.Fatal(err)
	}
	for _, h := range []float64{6, 12} {
		if v := vtc.VertCoords(h); !reflect.DeepEqual(v, []float64{1000, 850}) {
			t.Errorf("hour %g: %v", h, v)
		}
	}
	for _, h := range []float64{0, 18} {
		if v := vtc.VertCoords(h); !reflect.DeepEqual(v, []float64{1000, 850, 500}) {
			t.Errorf("hour %g: %v", h, v)
		}
	}
	t.Run("unknown offset", func(t *testing.T) {
		if v := vtc.VertCoords(3); len(v) != 0 {
			t.Errorf("have %v, want no levels", v)
		}
		if n := vtc.CountVertCoords(3); n != 0 {
			t.Errorf("count %d", n)
		}
	})
	t.Run("skipped offset", func(t *testing.T) {
		if err := vtc.AddRestriction("500", "18 21"); err != nil {
			t.Fatal(err)
		}
		if v := vtc.VertCoords(18); !reflect.DeepEqual(v, []float64{500}) {
			t.Errorf("hour 18: %v", v)
		}
		want := []Restriction{{"1000,850", "6,12"}, {"500", "18 21"}}
		if r := vtc.Restrictions(); !reflect.DeepEqual(r, want) {
			t.Errorf("%v != %v", r, want)
		}
	})
	t.Run("bad text", func(t *testing.T) {
		err := vtc.AddRestriction("1000 eight-fifty", "0")
		if _, ok := err.(*StructuralError); !ok {
			t.Fatalf("have %v, want a StructuralError", err)
		}
		if len(vtc.Restrictions()) != 2 {
			t.Error("failed restriction should not be kept")
		}
	})
}

func TestVertCoordsDefault(t *testing.T) {
	t.Run("no time coordinate", func(t *testing.T) {
		vtc := NewVertTimeCoord(isobaric(), nil)
		if vtc.NTimes() != 1 {
			t.Errorf("ntimes %d", vtc.NTimes())
		}
		if n := vtc.CountVertCoords(7); n != 3 {
			t.Errorf("count %d", n)
		}
	})
	t.Run("no restrictions", func(t *testing.T) {
		vtc := NewVertTimeCoord(isobaric(), NewTimeCoord("0", []float64{0, 6}))
		if v := vtc.VertCoords(3); !reflect.DeepEqual(v, []float64{1000, 850, 500}) {
			t.Errorf("have %v", v)
		}
	})
}

func TestSurfaceGrid(t *testing.T) {
	g := &Grid{Name: "Pressure_surface"}
	for _, h := range []float64{0, 5.5, 240} {
		if n := g.CountVertCoords(h); n != 1 {
			t.Errorf("count at %g: %d", h, n)
		}
		v := g.VertCoords(h)
		if len(v) != 1 || v[0] != 0 || !math.Signbit(v[0]) {
			t.Errorf("levels at %g: %v", h, v)
		}
	}
}

func TestRebase(t *testing.T) {
	tc := NewTimeCoord("0", []float64{0, 6})
	vtc := NewVertTimeCoord(isobaric(), tc)
	if err := vtc.AddRestriction("850", "6"); err != nil {
		t.Fatal(err)
	}
	vc := isobaric()
	vc.Values1 = []float64{1000, 925, 850, 500}
	o := vtc.rebase(vc, tc)
	if v := o.VertCoords(0); !reflect.DeepEqual(v, vc.Values1) {
		t.Errorf("default: %v", v)
	}
	if v := o.VertCoords(6); !reflect.DeepEqual(v, []float64{850}) {
		t.Errorf("restricted: %v", v)
	}
	if !reflect.DeepEqual(o.Restrictions(), vtc.Restrictions()) {
		t.Error("restrictions not kept")
	}
}
