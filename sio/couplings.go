/* Copyright 2019 Comcast Cable Communications Management, LLC
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

// Package sio plays curve libraries to the outside world.
//
// A Player evaluates a library's curves frame by frame and hands the
// results to Couplings, which write them somewhere (stdout, an MQTT
// broker, WebSocket clients).  Couplings can also deliver control
// commands ("pause", "seek 12", "set ball gain 0.7") back to the
// Player.
package sio

import (
	"context"
)

// Sample is the value of one curve at one frame.
type Sample struct {
	Curve string  `json:"curve"`
	Frame float64 `json:"frame"`
	Value float64 `json:"value"`
}

// Couplings provide channels for control input and sample output.
type Couplings interface {
	// Start initializes the Couplings.
	Start(context.Context) error

	// IO returns the command and output channels.
	//
	// The command channel can be nil.  The Couplings close it
	// when there's no more input.  The Player closes the output
	// channel when it's done.
	IO(context.Context) (chan string, chan []Sample, error)

	// Stop shuts down the Couplings.  It waits until pending
	// output is written.
	Stop(context.Context) error
}
