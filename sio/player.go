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
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/fcurve/library"
	"github.com/Comcast/fcurve/util"

	"github.com/jonboulle/clockwork"
)

// ErrQuit is returned by Command for "quit".
var ErrQuit = errors.New("quit")

// Player plays a library's curves at a frame rate.
type Player struct {
	Library *library.Library

	// Clock drives the frame ticker.
	Clock clockwork.Clock

	// Start and End are the frames to play.
	Start, End float64

	// FPS is frames per second.
	FPS float64

	// Step is the number of frames per tick.  Zero means one.
	Step float64

	// Loop goes back to Start after End.
	Loop bool

	// Curves are the names of the curves to play.  Empty means
	// all of them.
	Curves []string

	Couplings Couplings

	sync.Mutex
	frame  float64
	paused bool
}

// NewPlayer makes a Player for the library's frame range and rate
// with a real clock.
func NewPlayer(l *library.Library, c Couplings) *Player {
	start, end := l.Range()
	return &Player{
		Library:   l,
		Clock:     clockwork.NewRealClock(),
		Start:     start,
		End:       end,
		FPS:       l.Rate(),
		Couplings: c,
		frame:     start,
	}
}

// Frame evaluates the curves at the given frame.
func (p *Player) Frame(ctx context.Context, frame float64) []Sample {
	names := p.Curves
	if len(names) == 0 {
		names = p.Library.Names()
	}
	acc := make([]Sample, 0, len(names))
	for _, name := range names {
		v, err := p.Library.Eval(ctx, name, frame)
		if err != nil {
			util.Logf("player: %v", err)
			continue
		}
		acc = append(acc, Sample{
			Curve: name,
			Frame: frame,
			Value: v,
		})
	}
	return acc
}

// Current returns the current frame.
func (p *Player) Current() float64 {
	p.Lock()
	defer p.Unlock()
	return p.frame
}

// Command handles a control command:
//
//	pause
//	resume
//	seek FRAME
//	set ID PATH VALUE
//	quit
//
// "set" writes a property in the library's scene, so drivers see it
// on the next frame.
func (p *Player) Command(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	p.Lock()
	defer p.Unlock()

	switch parts[0] {
	case "pause":
		p.paused = true
	case "resume":
		p.paused = false
	case "seek":
		if len(parts) != 2 {
			return fmt.Errorf("usage: seek FRAME")
		}
		f, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return err
		}
		p.frame = f
	case "set":
		if len(parts) != 4 {
			return fmt.Errorf("usage: set ID PATH VALUE")
		}
		x, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return err
		}
		return p.Library.Scene.Set(parts[1], parts[2], x)
	case "quit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q", parts[0])
	}
	return nil
}

// advance moves to the next frame.  done is true when play is over.
func (p *Player) advance() (frame float64, done bool) {
	p.Lock()
	defer p.Unlock()

	step := p.Step
	if step <= 0 {
		step = 1
	}
	p.frame += step
	if p.End < p.frame {
		if !p.Loop {
			return p.frame, true
		}
		p.frame = p.Start
	}
	return p.frame, false
}

func (p *Player) isPaused() bool {
	p.Lock()
	defer p.Unlock()
	return p.paused
}

// Run plays until End (unless looping), "quit" or ctx is done.
//
// The Couplings are started and stopped here.
func (p *Player) Run(ctx context.Context) error {
	if p.Couplings == nil {
		return fmt.Errorf("player has no couplings")
	}
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	fps := p.FPS
	if fps <= 0 {
		fps = library.DefaultFPS
	}

	if err := p.Couplings.Start(ctx); err != nil {
		return err
	}
	in, out, err := p.Couplings.IO(ctx)
	if err != nil {
		return err
	}

	defer func() {
		close(out)
		if err := p.Couplings.Stop(context.Background()); err != nil {
			util.Logf("player: stop error %v", err)
		}
	}()

	p.Lock()
	if p.frame < p.Start || p.End < p.frame {
		p.frame = p.Start
	}
	p.Unlock()

	publish := func(frame float64) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- p.Frame(ctx, frame):
			return nil
		}
	}

	if err := publish(p.Current()); err != nil {
		return err
	}

	t := p.Clock.NewTicker(time.Duration(float64(time.Second) / fps))
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			before := p.Current()
			err := p.Command(line)
			if err == ErrQuit {
				return nil
			}
			if err != nil {
				util.Warnf("player: %s: %v", line, err)
				continue
			}
			if now := p.Current(); now != before {
				if err := publish(now); err != nil {
					return err
				}
			}

		case <-t.Chan():
			if p.isPaused() {
				continue
			}
			frame, done := p.advance()
			if done {
				return nil
			}
			if err := publish(frame); err != nil {
				return err
			}
		}
	}
}
