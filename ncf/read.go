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

package ncf

import (
	"fmt"
	"math"

	"github.com/ctessum/cdf"
)

// file is an open NetCDF file along with the number of records it holds.
type file struct {
	*cdf.File
	numRecs int
}

// lengths returns the dimension lengths of variable v, with the
// record dimension set to the number of records.
func (f *file) lengths(v string) []int {
	l := append([]int(nil), f.Header.Lengths(v)...)
	if f.Header.IsRecordVariable(v) {
		l[0] = f.numRecs
	}
	return l
}

// readVar reads the part of variable v between begin and end (all of it
// if both are nil) as float64. Fill values are returned as NaN.
func (f *file) readVar(v string, begin, end []int) ([]float64, error) {
	if begin == nil {
		end = f.lengths(v)
		begin = make([]int, len(end))
	}
	n := 1
	last := make([]int, len(end))
	for i := range end {
		n *= end[i] - begin[i]
		last[i] = end[i] - 1
	}
	if n <= 0 {
		return nil, nil
	}
	r := f.Reader(v, begin, last)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("ncf: reading variable %s: %v", v, err)
	}
	fill := toFloat(f.Header.FillValue(v))
	data := make([]float64, n)
	switch b := buf.(type) {
	case []float64:
		copy(data, b)
	case []float32:
		for i, x := range b {
			data[i] = float64(x)
		}
	case []int32:
		for i, x := range b {
			data[i] = float64(x)
		}
	case []int16:
		for i, x := range b {
			data[i] = float64(x)
		}
	case []uint8:
		for i, x := range b {
			data[i] = float64(int8(x))
		}
	default:
		return nil, fmt.Errorf("ncf: variable %s has unsupported type %T", v, buf)
	}
	for i, x := range data {
		if x == fill {
			data[i] = math.NaN()
		}
	}
	return data, nil
}

// toFloat converts a scalar fill value to float64.
func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int32:
		return float64(x)
	case int16:
		return float64(x)
	case int8:
		return float64(x)
	case uint8:
		return float64(int8(x))
	}
	return math.NaN()
}

// attrString returns attribute a of variable v if it is text.
func (f *file) attrString(v, a string) string {
	if s, ok := f.Header.GetAttribute(v, a).(string); ok {
		return s
	}
	return ""
}

// isCoordinate returns whether v is a coordinate variable: a one
// dimensional variable with the same name as its dimension.
func (f *file) isCoordinate(v string) bool {
	dims := f.Header.Dimensions(v)
	return len(dims) == 1 && dims[0] == v
}
