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
)

func TestNewTimeCoord(t *testing.T) {
	tc := NewTimeCoord("0", []float64{12, 0, 6, 6, 3, 12})
	want := []float64{0, 3, 6, 12}
	if !reflect.DeepEqual(tc.OffsetHours, want) {
		t.Errorf("%v != %v", tc.OffsetHours, want)
	}
	if i := tc.FindIndex(6); i != 2 {
		t.Errorf("index of 6: %d", i)
	}
	if i := tc.FindIndex(6.5); i != -1 {
		t.Errorf("index of 6.5: %d", i)
	}
}

func TestParseLevels(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		v1, v2     []float64
		shouldFail bool
	}{
		{name: "single", in: "1000 850 500", v1: []float64{1000, 850, 500}},
		{name: "pairs", in: "0,10 10,40\n 40,100", v1: []float64{0, 10, 40}, v2: []float64{10, 40, 100}},
		{name: "mixed", in: "0,10 10 40,100", v1: []float64{0, 10, 40}},
		{name: "bad", in: "0 x", shouldFail: true},
		{name: "bad pair", in: "0,x", shouldFail: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v1, v2, err := parseLevels(test.in)
			if test.shouldFail {
				if err == nil {
					t.Fatal("should have failed")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(v1, test.v1) {
				t.Errorf("values1: %v != %v", v1, test.v1)
			}
			if !reflect.DeepEqual(v2, test.v2) {
				t.Errorf("values2: %v != %v", v2, test.v2)
			}
		})
	}
}

func TestFormatLevels(t *testing.T) {
	vc := &VertCoord{Values1: []float64{0, 0.5, 1e-7}, Values2: []float64{0.5, 1, 2}}
	if s := formatLevels(vc); s != "0,0.5 0.5,1 1e-07,2" {
		t.Errorf("layers: %s", s)
	}
	vc.Values2 = nil
	if s := formatLevels(vc); s != "0 0.5 1e-07" {
		t.Errorf("levels: %s", s)
	}
}

func TestParseValues(t *testing.T) {
	v, err := parseValues(" 1000,850 \t500 ")
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1000, 850, 500}; !reflect.DeepEqual(v, want) {
		t.Errorf("%v != %v", v, want)
	}
}
