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

// Package main plays a curve library's frames to stdout, an MQTT
// broker, or WebSocket clients.
//
//	fcplay [FLAGS] -lib LIBRARY [COUPLING FLAGS]
//
// Defaults for some flags come from the environment, which can be
// loaded from a dotenv file (".env" or $FCPLAY_ENV):
//
//	FCPLAY_BROKER  MQTT broker (-io mq -h)
//	FCPLAY_TOPIC   MQTT topic for samples (-io mq -t)
//	FCPLAY_WS      WebSocket listen address (-io ws -addr)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Comcast/fcurve/sio"
	"github.com/Comcast/fcurve/tools"
	"github.com/Comcast/fcurve/util"

	"github.com/joho/godotenv"
)

func main() {
	loadEnv()

	var (
		coupling = flag.String("io", "std", `IO protocol: "std", "mq", or "ws"`)
		libFile  = flag.String("lib", "", "Library filename")
		fps      = flag.Float64("fps", 0, "Frames per second (default from the library)")
		start    = flag.Float64("start", 0, "First frame (default from the library)")
		end      = flag.Float64("end", 0, "Last frame (default from the library)")
		step     = flag.Float64("step", 1, "Frames per tick")
		loop     = flag.Bool("loop", false, "Start over after the last frame")
		curves   = flag.String("curves", "", "Comma-separated curve names (default all)")

		wait      = flag.Duration("wait", 0, "Wait this long after input EOF before stopping")
		haltOnEOF = flag.Bool("halt-on-eof", false, "Stop on input EOF (-io std)")
		verbose   = flag.Bool("v", false, "Verbose")
		help      = flag.Bool("h", false, "Get usage")
	)

	flag.Parse()

	if *help {
		flag.PrintDefaults()

		fmt.Fprintf(os.Stderr, "\n-io std (default):\n\n")
		_, fs := NewStdCouplings(nil)
		fs.PrintDefaults()

		fmt.Fprintf(os.Stderr, "\n-io mq:\n\n")
		_, fs = NewMQTTCouplings(nil)
		fs.PrintDefaults()

		fmt.Fprintf(os.Stderr, "\n-io ws:\n\n")
		_, fs = NewWebSocketCouplings(nil)
		fs.PrintDefaults()

		os.Exit(0)
	}

	util.Logging = *verbose

	if *libFile == "" {
		log.Fatal("need -lib LIBRARY")
	}
	l, err := tools.LoadLibrary(*libFile)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var cio sio.Couplings
	switch *coupling {
	case "std":
		c, _ := NewStdCouplings(flag.Args())
		if *haltOnEOF {
			go func() {
				<-c.InputEOF
				log.Printf("input EOF (waiting %v)", *wait)
				time.Sleep(*wait)
				cancel()
			}()
		}
		cio = c
	case "mq", "mqtt":
		c, _ := NewMQTTCouplings(flag.Args())
		cio = c
	case "ws":
		c, _ := NewWebSocketCouplings(flag.Args())
		cio = c
	default:
		log.Fatalf("unknown io: '%s'", *coupling)
	}

	p := sio.NewPlayer(l, cio)
	if 0 < *fps {
		p.FPS = *fps
	}
	if *start != 0 || *end != 0 {
		p.Start, p.End = *start, *end
	}
	p.Step = *step
	p.Loop = *loop
	if *curves != "" {
		p.Curves = strings.Split(*curves, ",")
	}

	util.Logf("playing %s frames %v to %v at %v fps", *libFile, p.Start, p.End, p.FPS)

	if err := p.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal(err)
	}
}

// loadEnv reads a dotenv file if there is one.  Variables already in
// the environment win.
func loadEnv() {
	filename := os.Getenv("FCPLAY_ENV")
	if filename == "" {
		filename = ".env"
	}
	if err := godotenv.Load(filename); err != nil && !os.IsNotExist(err) {
		log.Printf("env %s: %v", filename, err)
	}
}

// getenv returns the named variable or the given default.
func getenv(name, def string) string {
	if s, have := os.LookupEnv(name); have && s != "" {
		return s
	}
	return def
}
