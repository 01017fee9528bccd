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
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fmrc"
	"gonum.org/v1/gonum/floats"
)

// Variable describes a data variable of a dataset.
type Variable struct {
	Name, Description, Units string

	// VocabularyName is the standard name of the variable, or "N/A".
	VocabularyName string
}

// BoundingBox is a latitude-longitude extent in degrees.
type BoundingBox struct {
	MinLat, MaxLat, MinLon, MaxLon float64
}

// Metadata summarizes a dataset.
type Metadata struct {
	// Variables are sorted by name.
	Variables []Variable

	// Start and End give the range of times covered by the time
	// coordinates. They are zero if no time coordinate could be read.
	Start, End time.Time

	// VerticalAxis is the vertical coordinate with the most levels,
	// or nil.
	VerticalAxis *fmrc.VertCoord

	// BoundingBox is nil if the dataset has no latitude and longitude
	// coordinates.
	BoundingBox *BoundingBox
}

// Extract returns a summary of the dataset in the named file. Time
// coordinates whose units cannot be read are logged and left out of the
// date range.
func (s *Scanner) Extract(path string) (*Metadata, error) {
	nc, ff, err := open(path)
	if err != nil {
		return nil, err
	}
	defer ff.Close()
	h := nc.Header

	m := new(Metadata)
	timeDims := make(map[string]bool)
	var lat, lon []float64
	for _, v := range h.Variables() {
		if !nc.isCoordinate(v) {
			continue
		}
		units := nc.attrString(v, "units")
		switch {
		case isTimeUnits(units) || nc.attrString(v, "axis") == "T":
			timeDims[v] = true
			start, end, err := dateRange(nc, v, units)
			if err != nil {
				s.log().WithFields(logrus.Fields{"file": path, "variable": v}).
					Warnf("ncf: skipping time coordinate: %v", err)
				continue
			}
			if m.Start.IsZero() || start.Before(m.Start) {
				m.Start = start
			}
			if end.After(m.End) {
				m.End = end
			}
		case isVertical(nc, v):
			vc, err := vertCoord(nc, v)
			if err != nil {
				return nil, err
			}
			if m.VerticalAxis == nil || vc.Size() > m.VerticalAxis.Size() {
				m.VerticalAxis = vc
			}
		case isLatitude(nc, v):
			if lat, err = nc.readVar(v, nil, nil); err != nil {
				return nil, err
			}
		case isLongitude(nc, v):
			if lon, err = nc.readVar(v, nil, nil); err != nil {
				return nil, err
			}
		}
	}
	if len(lat) > 0 && len(lon) > 0 {
		m.BoundingBox = &BoundingBox{
			MinLat: floats.Min(lat), MaxLat: floats.Max(lat),
			MinLon: floats.Min(lon), MaxLon: floats.Max(lon),
		}
	}

	for _, v := range h.Variables() {
		dims := h.Dimensions(v)
		if nc.isCoordinate(v) || len(dims) == 0 || !timeDims[dims[0]] {
			continue
		}
		vocab := nc.attrString(v, "standard_name")
		if vocab == "" {
			vocab = "N/A"
		}
		m.Variables = append(m.Variables, Variable{
			Name:           v,
			Description:    description(nc, v),
			Units:          nc.attrString(v, "units"),
			VocabularyName: vocab,
		})
	}
	sort.Slice(m.Variables, func(i, j int) bool { return m.Variables[i].Name < m.Variables[j].Name })
	return m, nil
}

// dateRange returns the first and last times of time coordinate v.
func dateRange(nc *file, v, units string) (start, end time.Time, err error) {
	scale, ref, err := parseTimeUnits(units)
	if err != nil {
		return start, end, err
	}
	vals, err := nc.readVar(v, nil, nil)
	if err != nil {
		return start, end, err
	}
	var ok []float64
	for _, x := range vals {
		if !math.IsNaN(x) {
			ok = append(ok, x)
		}
	}
	if len(ok) == 0 {
		return start, end, fmt.Errorf("no valid times")
	}
	toTime := func(x float64) time.Time {
		return ref.Add(time.Duration(x * scale * float64(time.Hour)))
	}
	return toTime(floats.Min(ok)), toTime(floats.Max(ok)), nil
}

func isLatitude(nc *file, v string) bool {
	return v == "lat" || v == "latitude" || nc.attrString(v, "units") == "degrees_north"
}

func isLongitude(nc *file, v string) bool {
	return v == "lon" || v == "longitude" || nc.attrString(v, "units") == "degrees_east"
}
