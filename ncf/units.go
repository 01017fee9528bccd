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
	"strings"
	"time"
)

// dateLayouts are the reference date formats accepted in time units.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04Z",
	"2006-01-02",
	"2006-1-2 15:4:5",
	"2006-1-2",
}

// hoursPer gives the number of hours in each time unit.
var hoursPer = map[string]float64{
	"seconds": 1. / 3600, "second": 1. / 3600, "secs": 1. / 3600, "sec": 1. / 3600, "s": 1. / 3600,
	"minutes": 1. / 60, "minute": 1. / 60, "mins": 1. / 60, "min": 1. / 60,
	"hours": 1, "hour": 1, "hrs": 1, "hr": 1, "h": 1,
	"days": 24, "day": 24, "d": 24,
}

// parseTimeUnits parses units of the form "<unit> since <date>" and
// returns the length of one unit in hours and the reference date.
func parseTimeUnits(units string) (scale float64, ref time.Time, err error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, ref, fmt.Errorf("ncf: time units %q are not of the form '<unit> since <date>'", units)
	}
	scale, ok := hoursPer[strings.ToLower(strings.TrimSpace(parts[0]))]
	if !ok {
		return 0, ref, fmt.Errorf("ncf: unsupported time unit %q", parts[0])
	}
	date := strings.TrimSpace(parts[1])
	for _, layout := range dateLayouts {
		if ref, err = time.Parse(layout, date); err == nil {
			return scale, ref.UTC(), nil
		}
	}
	return 0, ref, fmt.Errorf("ncf: invalid reference date %q in time units", date)
}

// isTimeUnits returns whether units look like time units, whether or not
// they can be parsed.
func isTimeUnits(units string) bool {
	return strings.Contains(units, " since ")
}
