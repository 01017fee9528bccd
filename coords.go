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

	"gonum.org/v1/gonum/floats"
)

// TimeCoord is a named set of forecast offsets, in hours since the
// run reference time. Offsets are strictly increasing.
type TimeCoord struct {
	ID          string
	OffsetHours []float64
}

// NewTimeCoord returns a TimeCoord with the given id whose offsets are
// a sorted, de-duplicated copy of offsets.
func NewTimeCoord(id string, offsets []float64) *TimeCoord {
	return &TimeCoord{ID: id, OffsetHours: normalize(offsets)}
}

// FindIndex returns the index of hour in the offsets, or -1 if hour is
// not one of them. Matching is by exact value.
func (tc *TimeCoord) FindIndex(hour float64) int {
	for i, h := range tc.OffsetHours {
		if h == hour {
			return i
		}
	}
	return -1
}

// SameOffsets returns whether tc and o have identical offsets.
func (tc *TimeCoord) SameOffsets(o *TimeCoord) bool {
	return floats.Equal(tc.OffsetHours, o.OffsetHours)
}

// alias returns a copy of tc with a different id.
func (tc *TimeCoord) alias(id string) *TimeCoord {
	return &TimeCoord{ID: id, OffsetHours: tc.OffsetHours}
}

// normalize returns a sorted copy of v with repeated values removed.
func normalize(v []float64) []float64 {
	o := make([]float64, len(v))
	copy(o, v)
	sort.Float64s(o)
	n := 0
	for i, x := range o {
		if i > 0 && x == o[n-1] {
			continue
		}
		o[n] = x
		n++
	}
	return o[:n]
}

// VertCoord is a named vertical axis. Values2, when present, holds the
// second bound of each layer and has the same length as Values1.
// Name is the identity of a VertCoord when definitions are reconciled;
// ID may change between revisions.
//
// A VertCoord is not modified once it has been added to a Definition;
// updated values are stored by replacing the VertCoord.
type VertCoord struct {
	ID, Name, Units string
	Values1         []float64
	Values2         []float64
}

// Size returns the number of levels.
func (vc *VertCoord) Size() int { return len(vc.Values1) }

// IsLayer returns whether the levels are layers with two bounds.
func (vc *VertCoord) IsLayer() bool { return len(vc.Values2) > 0 }

// Equal returns whether vc and o have the same identifiers, units and
// values.
func (vc *VertCoord) Equal(o *VertCoord) bool {
	return vc.ID == o.ID && vc.Name == o.Name && vc.Units == o.Units &&
		floats.Equal(vc.Values1, o.Values1) && floats.Equal(vc.Values2, o.Values2)
}

// Clone returns a deep copy of vc.
func (vc *VertCoord) Clone() *VertCoord {
	o := *vc
	o.Values1 = append(vc.Values1[:0:0], vc.Values1...)
	o.Values2 = append(vc.Values2[:0:0], vc.Values2...)
	return &o
}

// parseValues parses a list of numbers separated by white space and/or
// commas.
func parseValues(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	o := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		o[i] = v
	}
	return o, nil
}

// parseLevels parses the body of a vertical coordinate, where each
// white-space separated token is either a single value or a "v1,v2"
// pair. Secondary values are only returned if every token is a pair.
func parseLevels(s string) (values1, values2 []float64, err error) {
	fields := strings.Fields(s)
	values1 = make([]float64, len(fields))
	values2 = make([]float64, len(fields))
	pairs := len(fields) > 0
	for i, f := range fields {
		parts := strings.SplitN(f, ",", 2)
		if values1[i], err = strconv.ParseFloat(parts[0], 64); err != nil {
			return nil, nil, fmt.Errorf("invalid number %q", parts[0])
		}
		if len(parts) == 1 {
			pairs = false
			continue
		}
		if values2[i], err = strconv.ParseFloat(parts[1], 64); err != nil {
			return nil, nil, fmt.Errorf("invalid number %q", parts[1])
		}
	}
	if !pairs {
		values2 = nil
	}
	return values1, values2, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatValues formats v as a space separated list.
func formatValues(v []float64) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = formatFloat(x)
	}
	return strings.Join(s, " ")
}

// formatLevels formats the levels of vc in the form read by parseLevels.
func formatLevels(vc *VertCoord) string {
	if !vc.IsLayer() {
		return formatValues(vc.Values1)
	}
	s := make([]string, len(vc.Values1))
	for i, x := range vc.Values1 {
		s[i] = formatFloat(x) + "," + formatFloat(vc.Values2[i])
	}
	return strings.Join(s, " ")
}
