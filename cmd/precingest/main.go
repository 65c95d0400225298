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

// Command precingest is a command-line interface for downloading and
// staging precipitation observations and drought maps.
package main

import (
	"fmt"
	"os"

	"github.com/climategrid/precingest/precingestutil"
)

func main() {
	if err := precingestutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
