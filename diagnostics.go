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
	"strings"

	"github.com/sirupsen/logrus"
)

// Log receives messages from the package. It can be replaced to change
// where messages go.
var Log logrus.FieldLogger = logrus.StandardLogger()

// DiagnosticKind classifies a Diagnostic.
type DiagnosticKind string

// These are the kinds of diagnostics.
const (
	DegenerateCycle     DiagnosticKind = "degenerate cycle"
	ConflictingRun      DiagnosticKind = "conflicting run"
	EmptyRunSeq         DiagnosticKind = "empty run sequence"
	HourNotInTimeCoord  DiagnosticKind = "hour not in time coordinate"
	MissingAxis         DiagnosticKind = "missing axis"
	GridNotInInventory  DiagnosticKind = "grid not in inventory"
	GridNotInDefinition DiagnosticKind = "grid not in definition"
	VertCoordNotFound   DiagnosticKind = "vertical coordinate not found"
	VertCoordMismatch   DiagnosticKind = "vertical coordinate mismatch"
	AmbiguousRename     DiagnosticKind = "ambiguous rename"
	NoRenameCandidate   DiagnosticKind = "no rename candidate"
	RenameConflict      DiagnosticKind = "rename conflict"
	GridRenamed         DiagnosticKind = "grid renamed"
	VertCoordReplaced   DiagnosticKind = "vertical coordinate replaced"
	VertCoordAdded      DiagnosticKind = "vertical coordinate added"
)

// Informational returns whether the kind records a change that was made
// rather than a problem.
func (k DiagnosticKind) Informational() bool {
	switch k {
	case GridRenamed, VertCoordReplaced, VertCoordAdded:
		return true
	}
	return false
}

// Diagnostic is a problem or change found while building or reconciling
// a definition. Diagnostics never stop processing.
type Diagnostic struct {
	Kind DiagnosticKind

	// Name is the field or coordinate the diagnostic is about.
	Name   string
	Detail string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Name, d.Detail)
}

// Diagnostics is a list of diagnostics in the order they were found.
type Diagnostics []Diagnostic

func (ds *Diagnostics) add(kind DiagnosticKind, name, format string, args ...interface{}) {
	*ds = append(*ds, Diagnostic{Kind: kind, Name: name, Detail: fmt.Sprintf(format, args...)})
}

// Count returns the number of diagnostics of kind k.
func (ds Diagnostics) Count(k DiagnosticKind) int {
	var n int
	for _, d := range ds {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Problems returns the diagnostics that are not informational.
func (ds Diagnostics) Problems() Diagnostics {
	var o Diagnostics
	for _, d := range ds {
		if !d.Kind.Informational() {
			o = append(o, d)
		}
	}
	return o
}

// Log writes the diagnostics to l, problems as warnings and the rest as
// information.
func (ds Diagnostics) Log(l logrus.FieldLogger) {
	for _, d := range ds {
		e := l.WithFields(logrus.Fields{"kind": string(d.Kind), "name": d.Name})
		if d.Kind.Informational() {
			e.Info(d.Detail)
		} else {
			e.Warn(d.Detail)
		}
	}
}

// Err returns an error listing the problems, or nil if there are none.
func (ds Diagnostics) Err() error {
	p := ds.Problems()
	if len(p) == 0 {
		return nil
	}
	s := make([]string, len(p))
	for i, d := range p {
		s[i] = d.String()
	}
	return fmt.Errorf("fmrc: %d problem(s):\n%s", len(p), strings.Join(s, "\n"))
}
