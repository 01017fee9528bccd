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
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// StructuralError reports a definition document that cannot be
// interpreted.
type StructuralError struct {
	// Element is the document element where the problem was found.
	Element string
	Msg     string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("fmrc: invalid definition: %s: %s", e.Element, e.Msg)
}

func structErr(element, format string, args ...interface{}) error {
	return &StructuralError{Element: element, Msg: fmt.Sprintf(format, args...)}
}

type xmlDefinition struct {
	XMLName      xml.Name         `xml:"fmrcDefinition"`
	Dataset      string           `xml:"dataset,attr,omitempty"`
	Name         string           `xml:"name,attr,omitempty"`
	SuffixFilter string           `xml:"suffixFilter,attr,omitempty"`
	VertCoords   []xmlVertCoord   `xml:"vertCoord"`
	OffsetHours  []xmlOffsetHours `xml:"offsetHours"`
	RunSeqs      []xmlRunSeq      `xml:"runSequence"`
}

type xmlVertCoord struct {
	ID     string `xml:"id,attr"`
	Name   string `xml:"name,attr"`
	Units  string `xml:"units,attr,omitempty"`
	Values string `xml:",chardata"`
}

type xmlOffsetHours struct {
	ID     string `xml:"id,attr"`
	Values string `xml:",chardata"`
}

type xmlRunSeq struct {
	AllUseSeq string        `xml:"allUseSeq,attr,omitempty"`
	Runs      []xmlRun      `xml:"run"`
	Variables []xmlVariable `xml:"variable"`
}

type xmlRun struct {
	RunHour       string `xml:"runHour,attr"`
	OffsetHourSeq string `xml:"offsetHourSeq,attr"`
}

type xmlVariable struct {
	Name         string           `xml:"name,attr"`
	VertCoord    string           `xml:"vertCoord,attr,omitempty"`
	Restrictions []xmlRestriction `xml:"vertTimeCoord"`

	// Older documents hold restrictions in vertCoord elements.
	OldRestrictions []xmlRestriction `xml:"vertCoord"`
}

type xmlRestriction struct {
	Restrict *string `xml:"restrict,attr"`
	Hours    string  `xml:",chardata"`
}

// Encode writes d to w as XML.
func Encode(w io.Writer, d *Definition) error {
	x := xmlDefinition{Dataset: d.Name, SuffixFilter: d.SuffixFilter}
	for _, vtc := range d.VertTimeCoords {
		x.VertCoords = append(x.VertCoords, xmlVertCoord{
			ID:     vtc.VC.ID,
			Name:   vtc.VC.Name,
			Units:  vtc.VC.Units,
			Values: formatLevels(vtc.VC),
		})
	}
	for _, tc := range d.TimeCoords {
		x.OffsetHours = append(x.OffsetHours, xmlOffsetHours{ID: tc.ID, Values: formatValues(tc.OffsetHours)})
	}
	for _, rs := range d.RunSeqs {
		var xrs xmlRunSeq
		if rs.IsAll {
			xrs.AllUseSeq = rs.AllUse.ID
		}
		for _, r := range rs.Runs {
			xrs.Runs = append(xrs.Runs, xmlRun{RunHour: formatFloat(r.Hour), OffsetHourSeq: r.TC.ID})
		}
		for _, g := range rs.Grids {
			xv := xmlVariable{Name: g.Name}
			if g.VTC != nil {
				xv.VertCoord = g.VTC.ID()
				for _, r := range g.VTC.restrictions {
					levels := r.Levels
					xv.Restrictions = append(xv.Restrictions, xmlRestriction{Restrict: &levels, Hours: r.OffsetHours})
				}
			}
			xrs.Variables = append(xrs.Variables, xv)
		}
		x.RunSeqs = append(x.RunSeqs, xrs)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("fmrc: writing definition: %v", err)
	}
	e := xml.NewEncoder(w)
	e.Indent("", "  ")
	if err := e.Encode(x); err != nil {
		return fmt.Errorf("fmrc: writing definition: %v", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Decode reads a definition written by Encode. Any problem with the
// document results in a *StructuralError and no definition.
func Decode(r io.Reader) (*Definition, error) {
	var x xmlDefinition
	if err := xml.NewDecoder(r).Decode(&x); err != nil {
		return nil, structErr("fmrcDefinition", "%v", err)
	}
	name := x.Dataset
	if name == "" {
		name = x.Name
	}
	d := NewDefinition(name)
	d.SuffixFilter = x.SuffixFilter

	for _, xvc := range x.VertCoords {
		if xvc.ID == "" || xvc.Name == "" {
			return nil, structErr("vertCoord", "id and name are required (id=%q name=%q)", xvc.ID, xvc.Name)
		}
		if d.FindVertTimeCoord(xvc.ID) != nil {
			return nil, structErr("vertCoord", "duplicate id %q", xvc.ID)
		}
		v1, v2, err := parseLevels(xvc.Values)
		if err != nil {
			return nil, structErr("vertCoord", "%s: %v", xvc.ID, err)
		}
		vc := &VertCoord{ID: xvc.ID, Name: xvc.Name, Units: xvc.Units, Values1: v1, Values2: v2}
		d.VertTimeCoords = append(d.VertTimeCoords, NewVertTimeCoord(vc, nil))
	}

	for _, xoh := range x.OffsetHours {
		if xoh.ID == "" {
			return nil, structErr("offsetHours", "id is required")
		}
		if d.FindTimeCoord(xoh.ID) != nil {
			return nil, structErr("offsetHours", "duplicate id %q", xoh.ID)
		}
		hours, err := parseValues(xoh.Values)
		if err != nil {
			return nil, structErr("offsetHours", "%s: %v", xoh.ID, err)
		}
		d.TimeCoords = append(d.TimeCoords, NewTimeCoord(xoh.ID, hours))
	}

	var diags Diagnostics
	names := make(map[string]bool)
	for i, xrs := range x.RunSeqs {
		rs, ds, err := decodeRunSeq(d, xrs)
		if err != nil {
			return nil, err
		}
		diags = append(diags, ds...)
		for _, xv := range xrs.Variables {
			if xv.Name == "" {
				return nil, structErr("variable", "runSequence %d: name is required", i)
			}
			if names[xv.Name] {
				return nil, structErr("variable", "duplicate name %q", xv.Name)
			}
			names[xv.Name] = true
			g, err := decodeGrid(d, rs, xv)
			if err != nil {
				return nil, err
			}
			rs.Grids = append(rs.Grids, g)
		}
		rs.sortGrids()
	}
	diags.Log(Log)
	return d, nil
}

func decodeRunSeq(d *Definition, xrs xmlRunSeq) (*RunSeq, Diagnostics, error) {
	if xrs.AllUseSeq != "" {
		tc := d.FindTimeCoord(xrs.AllUseSeq)
		if tc == nil {
			return nil, nil, structErr("runSequence", "allUseSeq %q is not a known offsetHours id", xrs.AllUseSeq)
		}
		return d.AddAllUseSeq(tc), nil, nil
	}
	if len(xrs.Runs) == 0 {
		return nil, nil, structErr("runSequence", "either allUseSeq or run elements are required")
	}
	runs := make([]Run, len(xrs.Runs))
	for i, xr := range xrs.Runs {
		h, err := strconv.ParseFloat(xr.RunHour, 64)
		if err != nil {
			return nil, nil, structErr("run", "invalid runHour %q", xr.RunHour)
		}
		tc := d.FindTimeCoord(xr.OffsetHourSeq)
		if tc == nil {
			return nil, nil, structErr("run", "offsetHourSeq %q is not a known offsetHours id", xr.OffsetHourSeq)
		}
		runs[i] = Run{Hour: h, TC: tc}
	}
	rs, diags := d.AddRunSeq(runs)
	return rs, diags, nil
}

func decodeGrid(d *Definition, rs *RunSeq, xv xmlVariable) (*Grid, error) {
	g := &Grid{Name: xv.Name}
	restrictions := append(append([]xmlRestriction(nil), xv.Restrictions...), xv.OldRestrictions...)
	if xv.VertCoord == "" {
		if len(restrictions) > 0 {
			return nil, structErr("variable", "%s: restrictions need a vertCoord", xv.Name)
		}
		return g, nil
	}
	vtc := d.FindVertTimeCoord(xv.VertCoord)
	if vtc == nil {
		return nil, structErr("variable", "%s: vertCoord %q is not a known vertCoord id", xv.Name, xv.VertCoord)
	}
	if len(restrictions) == 0 {
		g.VTC = vtc
		return g, nil
	}
	tc := rs.AllUse
	if !rs.IsAll {
		tc = rs.UnionTimeCoord()
	}
	g.VTC = NewVertTimeCoord(vtc.VC, tc)
	for _, xr := range restrictions {
		if xr.Restrict == nil {
			return nil, structErr("vertTimeCoord", "%s: restrict is required", xv.Name)
		}
		if err := g.VTC.AddRestriction(*xr.Restrict, xr.Hours); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ReadFile reads the definition in the named file. If the file does not
// exist, the result is nil and false with no error.
func ReadFile(path string) (*Definition, bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("fmrc: reading definition: %v", err)
	}
	defer f.Close()
	d, err := Decode(f)
	if err != nil {
		return nil, true, err
	}
	return d, true, nil
}

// WriteFile writes d to the named file, creating its directory if
// necessary.
func WriteFile(path string, d *Definition) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("fmrc: writing definition: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fmrc: writing definition: %v", err)
	}
	if err := Encode(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
