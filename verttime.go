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

	"github.com/sirupsen/logrus"
)

// Restriction is an exception to the default levels of a VertTimeCoord:
// at the listed offset hours, only the listed levels exist. Both fields
// hold the text as it was given to AddRestriction.
type Restriction struct {
	Levels      string
	OffsetHours string
}

// VertTimeCoord is a vertical coordinate whose levels may depend on the
// forecast offset. Without a TimeCoord, or without restrictions, every
// offset has the default levels of VC.
type VertTimeCoord struct {
	VC *VertCoord
	TC *TimeCoord

	restrictions []Restriction

	// levels holds the levels for each offset of TC. It is allocated
	// by the first restriction.
	levels [][]float64
}

// NewVertTimeCoord binds vc to tc, which may be nil.
func NewVertTimeCoord(vc *VertCoord, tc *TimeCoord) *VertTimeCoord {
	return &VertTimeCoord{VC: vc, TC: tc}
}

// ID returns the id of the vertical coordinate.
func (vtc *VertTimeCoord) ID() string { return vtc.VC.ID }

// Name returns the name of the vertical coordinate.
func (vtc *VertTimeCoord) Name() string { return vtc.VC.Name }

// NTimes returns the number of offsets the levels can vary over.
func (vtc *VertTimeCoord) NTimes() int {
	if vtc.TC == nil {
		return 1
	}
	return len(vtc.TC.OffsetHours)
}

// Restrictions returns the restrictions in the order they were added.
func (vtc *VertTimeCoord) Restrictions() []Restriction {
	return append([]Restriction(nil), vtc.restrictions...)
}

// Restricted returns whether any restriction has been added.
func (vtc *VertTimeCoord) Restricted() bool { return len(vtc.restrictions) > 0 }

// AddRestriction limits the levels at the offsets in hoursText to the
// levels in levelsText. Both are lists of numbers separated by white space
// or commas. Offsets that are not part of the TimeCoord are logged and
// skipped. Several offsets share the same levels slice.
func (vtc *VertTimeCoord) AddRestriction(levelsText, hoursText string) error {
	levels, err := parseValues(levelsText)
	if err != nil {
		return &StructuralError{Element: "vertTimeCoord", Msg: fmt.Sprintf("restrict levels: %v", err)}
	}
	hours, err := parseValues(hoursText)
	if err != nil {
		return &StructuralError{Element: "vertTimeCoord", Msg: fmt.Sprintf("restrict offset hours: %v", err)}
	}
	for _, h := range vtc.addRestriction(levels, hours, levelsText, hoursText) {
		Log.WithFields(logrus.Fields{
			"vertCoord": vtc.VC.Name,
			"offset":    h,
		}).Error("fmrc: restriction offset hour is not in the time coordinate")
	}
	return nil
}

// addRestriction applies parsed levels and hours and keeps the texts they
// were read from. It returns the hours that are not offsets of the
// TimeCoord.
func (vtc *VertTimeCoord) addRestriction(levels, hours []float64, levelsText, hoursText string) []float64 {
	missing := vtc.restrict(levels, hours)
	vtc.restrictions = append(vtc.restrictions, Restriction{Levels: levelsText, OffsetHours: hoursText})
	return missing
}

// restrict sets the levels at each of the offset hours and returns the
// hours that are not offsets of the TimeCoord.
func (vtc *VertTimeCoord) restrict(levels, hours []float64) (missing []float64) {
	if vtc.levels == nil {
		vtc.levels = make([][]float64, vtc.NTimes())
		for i := range vtc.levels {
			vtc.levels[i] = vtc.VC.Values1
		}
	}
	for _, h := range hours {
		i := -1
		if vtc.TC != nil {
			i = vtc.TC.FindIndex(h)
		}
		if i < 0 {
			missing = append(missing, h)
			continue
		}
		vtc.levels[i] = levels
	}
	return missing
}

// VertCoords returns the levels at offset hour. If there is a TimeCoord
// and restrictions but hour is not one of the offsets, the result is
// empty. The returned slice must not be modified.
func (vtc *VertTimeCoord) VertCoords(hour float64) []float64 {
	if vtc.TC == nil || vtc.levels == nil {
		return vtc.VC.Values1
	}
	i := vtc.TC.FindIndex(hour)
	if i < 0 {
		return []float64{}
	}
	return vtc.levels[i]
}

// CountVertCoords returns the number of levels at offset hour.
func (vtc *VertTimeCoord) CountVertCoords(hour float64) int {
	return len(vtc.VertCoords(hour))
}

// rebase returns a copy of vtc with vc as its vertical coordinate and the
// same restrictions applied again.
func (vtc *VertTimeCoord) rebase(vc *VertCoord, tc *TimeCoord) *VertTimeCoord {
	o := NewVertTimeCoord(vc, tc)
	for _, r := range vtc.restrictions {
		// The text was parsed when the restriction was first added.
		levels, _ := parseValues(r.Levels)
		hours, _ := parseValues(r.OffsetHours)
		o.restrict(levels, hours)
		o.restrictions = append(o.restrictions, r)
	}
	return o
}
