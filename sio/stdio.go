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

package sio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Stdio is a fairly simple Couplings that reads commands from stdin
// and writes samples to stdout, one JSON object per line.
type Stdio struct {
	// In supplies commands.  Nil means no commands.
	In io.Reader

	// Out receives samples.
	Out io.Writer

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "sample").
	Tags bool

	// PadTags adds some padding to tags.
	PadTags bool

	// Frames writes one line per frame (a JSON array) instead of
	// one line per sample.
	Frames bool

	// InputEOF will be closed on EOF from In.
	InputEOF chan bool

	WG sync.WaitGroup

	in  chan string
	out chan []Sample
	mu  sync.Mutex
}

// NewStdio creates a new Stdio using os.Stdin and os.Stdout.
func NewStdio() *Stdio {
	return &Stdio{
		In:       os.Stdin,
		Out:      os.Stdout,
		InputEOF: make(chan bool),
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop waits until all output is written.
func (s *Stdio) Stop(ctx context.Context) error {
	s.WG.Wait()
	return nil
}

func (s *Stdio) printf(tag, format string, args ...interface{}) {
	if s.PadTags {
		tag = fmt.Sprintf("% 10s", tag)
	}
	if s.Tags {
		format = tag + " " + format
	}
	if s.Timestamps {
		ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
		format = ts + " " + format
	}

	s.mu.Lock()
	fmt.Fprintf(s.Out, format, args...)
	s.mu.Unlock()
}

// IO returns channels for reading commands from In and writing
// samples to Out.
func (s *Stdio) IO(ctx context.Context) (chan string, chan []Sample, error) {
	s.out = make(chan []Sample)

	if s.In != nil {
		s.in = make(chan string)

		// Not in WG: a read from stdin can block forever.
		go func() {
			defer close(s.in)
			stdin := bufio.NewReader(s.In)
			for {
				line, err := stdin.ReadString('\n')
				if err == io.EOF || strings.TrimSpace(line) == "quit" {
					if s.InputEOF != nil {
						close(s.InputEOF)
					}
					if err == nil {
						s.send(ctx, "quit")
					}
					return
				}
				if err != nil {
					log.Printf("stdin error %s", err)
					return
				}
				if s.EchoInput {
					s.printf("input", "%s", line)
				}
				line = strings.TrimSpace(line)
				if strings.HasPrefix(line, "#") || len(line) == 0 {
					continue
				}
				if !s.send(ctx, line) {
					return
				}
			}
		}()
	}

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case samples, ok := <-s.out:
				if !ok {
					return
				}
				if s.Frames {
					s.printf("frame", "%s\n", JS(samples))
					continue
				}
				for _, x := range samples {
					s.printf("sample", "%s\n", JS(x))
				}
			}
		}
	}()

	return s.in, s.out, nil
}

func (s *Stdio) send(ctx context.Context, line string) bool {
	select {
	case <-ctx.Done():
		return false
	case s.in <- line:
		return true
	}
}
