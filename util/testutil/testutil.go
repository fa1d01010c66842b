/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package testutil has small helpers for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
)

// Tolerance is the default for Near.
var Tolerance = 1e-6

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		log.Printf("warning: testutil.JS error %s for %#v", err, x)
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes, parses that data as JSON.
// When given anything else, just returns what's given.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		return Dwimjs(string(vv))
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			panic(err)
		}
		return v
	default:
		return x
	}
}

// Near reports whether x and y differ by at most eps.  When eps is
// zero, Tolerance is used.
func Near(x, y, eps float64) bool {
	if eps == 0 {
		eps = Tolerance
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	return math.Abs(x-y) <= eps
}

// Fataler is the part of testing.TB that CheckNear needs.
type Fataler interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

// CheckNear fails the test if got isn't Near want.
func CheckNear(t Fataler, what string, got, want float64) {
	t.Helper()
	if !Near(got, want, 0) {
		t.Fatalf("%s: got %v, wanted %v", what, got, want)
	}
}
