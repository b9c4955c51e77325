/*
Copyright 2020 GramLabs, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package numstr

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// NumberOrString is value that can a JSON number or string.
type NumberOrString struct {
	IsString bool
	NumVal   json.Number
	StrVal   string
}

// FromInt64 returns the supplied value as a NumberOrString
func FromInt64(val int64) NumberOrString {
	return NumberOrString{NumVal: json.Number(strconv.FormatInt(val, 10))}
}

// FromFloat64 returns the supplied value as a NumberOrString
func FromFloat64(val float64) NumberOrString {
	return NumberOrString{NumVal: json.Number(strconv.FormatFloat(val, 'g', -1, 64))}
}

// FromString returns the supplied value as a NumberOrString
func FromString(val string) NumberOrString {
	return NumberOrString{StrVal: val, IsString: true}
}

// FromValue converts a decoded configuration scalar into a NumberOrString. Booleans are
// kept as their string form.
func FromValue(val interface{}) (NumberOrString, error) {
	switch v := val.(type) {
	case json.Number:
		return NumberOrString{NumVal: v}, nil
	case float64:
		return FromFloat64(v), nil
	case float32:
		return FromFloat64(float64(v)), nil
	case int:
		return FromInt64(int64(v)), nil
	case int64:
		return FromInt64(v), nil
	case int32:
		return FromInt64(int64(v)), nil
	case string:
		return FromString(v), nil
	case bool:
		return FromString(strconv.FormatBool(v)), nil
	default:
		return NumberOrString{}, fmt.Errorf("unsupported value type %T", val)
	}
}

// String coerces the value to a string.
func (s *NumberOrString) String() string {
	if s.IsString {
		return s.StrVal
	}
	return s.NumVal.String()
}

// Float64Value coerces the value to a float64.
func (s *NumberOrString) Float64Value() float64 {
	if s.IsString {
		v, _ := strconv.ParseFloat(s.StrVal, 64)
		return v
	}
	v, _ := s.NumVal.Float64()
	return v
}

// Interface returns the native Go value: a string, an int64 for integral numbers or a float64.
func (s *NumberOrString) Interface() interface{} {
	if s.IsString {
		return s.StrVal
	}
	if i, err := s.NumVal.Int64(); err == nil {
		return i
	}
	f, _ := s.NumVal.Float64()
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// MarshalJSON writes the value with the appropriate type.
func (s NumberOrString) MarshalJSON() ([]byte, error) {
	if s.IsString {
		return json.Marshal(s.StrVal)
	}
	return json.Marshal(s.NumVal)
}

// UnmarshalJSON reads the value from either a string or number.
func (s *NumberOrString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		s.IsString = true
		return json.Unmarshal(b, &s.StrVal)
	}
	return json.Unmarshal(b, &s.NumVal)
}
