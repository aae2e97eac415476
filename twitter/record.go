/*
 *  Copyright 2021 qitoi
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

package twitter

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is one loosely-typed entry decoded from an archive data file.
type Record map[string]any

// Field describes how a value is read from a Record: the key to look up,
// older spellings of the same key, and the policy when it is absent.
type Field struct {
	Key      string
	Aliases  []string
	Required bool
	Default  any
}

type MissingFieldError struct {
	Key string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Key
}

// Unwrap returns the object stored under key when rec has the
// {"tweet": {...}} / {"like": {...}} shape, and rec itself otherwise.
func Unwrap(rec Record, key string) Record {
	if inner, ok := rec[key].(map[string]any); ok {
		return Record(inner)
	}
	return rec
}

func (r Record) lookup(f Field) (any, bool) {
	if v, ok := r[f.Key]; ok && v != nil {
		return v, true
	}
	for _, alias := range f.Aliases {
		if v, ok := r[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String reads f as a string. Numbers are formatted without exponent so
// that ids survive. A required field that is absent or empty is an error.
func (r Record) String(f Field) (string, error) {
	var s string
	var ok bool

	if v, found := r.lookup(f); found {
		s, ok = toString(v)
	}
	if ok && s != "" {
		return s, nil
	}
	if f.Required {
		return "", &MissingFieldError{Key: f.Key}
	}
	if ok {
		return s, nil
	}
	if d, isString := f.Default.(string); isString {
		return d, nil
	}
	return "", nil
}

// Int reads f as a non-negative integer. Archives store counts either as
// JSON numbers or as numeric strings; anything else yields the default.
func (r Record) Int(f Field) int64 {
	def, _ := f.Default.(int64)

	v, found := r.lookup(f)
	if !found {
		return def
	}
	n, ok := toInt(v)
	if !ok || n < 0 {
		return def
	}
	return n
}

// Object returns the nested object under key, or nil.
func (r Record) Object(key string) Record {
	if m, ok := r[key].(map[string]any); ok {
		return Record(m)
	}
	return nil
}

// Objects returns the object elements of the array under key. Elements
// that are not objects are dropped.
func (r Record) Objects(key string) []Record {
	items, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil {
			return floatToInt(f)
		}
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
	case float64:
		return floatToInt(t)
	case int64:
		return t, true
	case int:
		return int64(t), true
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
