/*
Copyright © 2019 the Precingest authors.
This file is part of Precingest.

Precingest is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Precingest is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Precingest.  If not, see <http://www.gnu.org/licenses/>.
*/

package cmorph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// tdefLayout parses date tokens like "01jan1998"; time.Parse matches
// month names case-insensitively.
const tdefLayout = "02Jan2006"

// ParseDescriptor reads a CMORPH data descriptor, for example:
//
//	DSET ../0.25deg-DLY_00Z/%y4/%y4%m2/CMORPH_V1.0_RAW_0.25deg-DLY_00Z_%y4%m2%d2
//	TITLE  CMORPH Version 1.0BETA Version, daily precip from 00Z-24Z
//	OPTIONS template little_endian
//	UNDEF  -999.0
//	XDEF 1440 LINEAR    0.125  0.25
//	YDEF  480 LINEAR  -59.875  0.25
//	ZDEF   01 LEVELS 1
//	TDEF 99999 LINEAR  01jan1998 1dy
//	VARS 1
//	cmorph   1   99 yyyyy CMORPH Version 1.0 daily precipitation (mm)
//	ENDVARS
//
// The UNDEF, XDEF and YDEF records are mandatory; title, variable
// description, byte order and start date default to zero values.
// Unrecognized lines are ignored. The observation type determines how the
// TDEF date token is parsed: the adjusted and ICDR descriptors carry a
// time-of-day prefix ("00z") that is stripped before parsing.
func ParseDescriptor(r io.Reader, obs ObsType) (GridDescriptor, error) {
	var d GridDescriptor
	var haveUndef, haveX, haveY bool

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		words := strings.Fields(scanner.Text())
		if len(words) == 0 {
			continue
		}
		switch words[0] {
		case "UNDEF":
			v, err := floatToken(words, 1, "UNDEF")
			if err != nil {
				return d, err
			}
			d.Undef = v
			haveUndef = true
		case "XDEF":
			a, err := parseAxis(words)
			if err != nil {
				return d, err
			}
			d.X = a
			haveX = true
		case "YDEF":
			a, err := parseAxis(words)
			if err != nil {
				return d, err
			}
			d.Y = a
			haveY = true
		case "TDEF":
			if len(words) < 4 {
				return d, fmt.Errorf("cmorph: TDEF record has %d tokens, need 4: %w", len(words), ErrMalformedDescriptor)
			}
			tok := words[3]
			if n := obs.tdefPrefixLen(); n > 0 {
				if len(tok) <= n {
					return d, fmt.Errorf("cmorph: TDEF date token %q too short for %v descriptor: %w", tok, obs, ErrMalformedDescriptor)
				}
				tok = tok[n:]
			}
			t, err := time.Parse(tdefLayout, tok)
			if err != nil {
				return d, fmt.Errorf("cmorph: TDEF date token %q: %w", words[3], ErrMalformedDescriptor)
			}
			d.StartDate = t
		case "OPTIONS":
			for _, w := range words[1:] {
				if w == "big_endian" {
					d.BigEndian = true
				}
			}
		case "cmorph":
			// Variable description line, e.g.
			// "cmorph 1 99 yyyyy CMORPH Version 1.0 daily precipitation (mm)".
			if len(words) > 4 {
				d.VarDescription = strings.Join(words[4:], " ")
			}
		case "TITLE":
			d.Title = strings.Join(words[1:], " ")
		}
	}
	if err := scanner.Err(); err != nil {
		return d, fmt.Errorf("cmorph: reading descriptor: %v", err)
	}

	var missing []string
	if !haveUndef {
		missing = append(missing, "UNDEF")
	}
	if !haveX {
		missing = append(missing, "XDEF")
	}
	if !haveY {
		missing = append(missing, "YDEF")
	}
	if len(missing) > 0 {
		return d, fmt.Errorf("cmorph: descriptor missing required record(s) %s: %w",
			strings.Join(missing, ", "), ErrMalformedDescriptor)
	}
	return d, nil
}

// parseAxis handles XDEF/YDEF records such as
// "XDEF 1440 LINEAR 0.125 0.25". The token at position 2 is a grid-type
// keyword and is not consumed.
func parseAxis(words []string) (AxisSpec, error) {
	var a AxisSpec
	if len(words) < 5 {
		return a, fmt.Errorf("cmorph: %s record has %d tokens, need 5: %w", words[0], len(words), ErrMalformedDescriptor)
	}
	count, err := strconv.Atoi(words[1])
	if err != nil {
		return a, fmt.Errorf("cmorph: %s count %q: %w", words[0], words[1], ErrMalformedDescriptor)
	}
	start, err := floatToken(words, 3, words[0]+" start")
	if err != nil {
		return a, err
	}
	inc, err := floatToken(words, 4, words[0]+" increment")
	if err != nil {
		return a, err
	}
	if count <= 0 || inc == 0 {
		return a, fmt.Errorf("cmorph: %s defines a degenerate axis (count %d, increment %g): %w",
			words[0], count, inc, ErrMalformedDescriptor)
	}
	a.Count = count
	a.Start = start
	a.Increment = inc
	return a, nil
}

func floatToken(words []string, i int, what string) (float64, error) {
	if len(words) <= i {
		return 0, fmt.Errorf("cmorph: %s value missing: %w", what, ErrMalformedDescriptor)
	}
	v, err := strconv.ParseFloat(words[i], 64)
	if err != nil {
		return 0, fmt.Errorf("cmorph: %s value %q is not a number: %w", what, words[i], ErrMalformedDescriptor)
	}
	return v, nil
}
