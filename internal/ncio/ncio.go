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

// Package ncio holds shared helpers for working with NetCDF variable
// values as returned by go-native-netcdf, which hands back (possibly
// nested) slices whose element type depends on the on-disk type.
package ncio

import (
	"fmt"
	"reflect"
)

// Floats flattens a NetCDF variable value into a row-major []float64.
// Integer and float element types of any nesting depth are accepted.
func Floats(v interface{}) ([]float64, error) {
	return appendFloats(nil, v)
}

func appendFloats(dst []float64, v interface{}) ([]float64, error) {
	switch t := v.(type) {
	case []float64:
		return append(dst, t...), nil
	case []float32:
		for _, x := range t {
			dst = append(dst, float64(x))
		}
		return dst, nil
	case []int32:
		for _, x := range t {
			dst = append(dst, float64(x))
		}
		return dst, nil
	case []int16:
		for _, x := range t {
			dst = append(dst, float64(x))
		}
		return dst, nil
	case float64:
		return append(dst, t), nil
	case float32:
		return append(dst, float64(t)), nil
	case int32:
		return append(dst, float64(t)), nil
	case int16:
		return append(dst, float64(t)), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("ncio: cannot flatten %T to floats", v)
	}
	var err error
	for i := 0; i < rv.Len(); i++ {
		dst, err = appendFloats(dst, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}
