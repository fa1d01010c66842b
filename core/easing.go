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

package core

import "math"

// EaseParams are the segment parameters given to an easing
// function.
//
// Time is the time since the start of the segment, Begin is the
// value at the start, Change is the total change in value over the
// segment, and Duration is the length of the segment.
type EaseParams struct {
	Time, Begin, Change, Duration float64

	// Back is the overshoot used by back easing.
	Back float64

	// Amplitude and Period are used by elastic easing.
	Amplitude, Period float64
}

// EaseFunc computes a value within a segment.
type EaseFunc func(p EaseParams) float64

// easings maps each easing family to its in, out and in-out
// functions (in that order).
var easings = map[Interpolation][3]EaseFunc{
	Back:    {backIn, backOut, backInOut},
	Bounce:  {bounceIn, bounceOut, bounceInOut},
	Circ:    {circIn, circOut, circInOut},
	Cubic:   {cubicIn, cubicOut, cubicInOut},
	Elastic: {elasticIn, elasticOut, elasticInOut},
	Expo:    {expoIn, expoOut, expoInOut},
	Quad:    {quadIn, quadOut, quadInOut},
	Quart:   {quartIn, quartOut, quartInOut},
	Quint:   {quintIn, quintOut, quintInOut},
	Sine:    {sineIn, sineOut, sineInOut},
}

// EasingFunc returns the easing function for the given family and
// form.  The second result is false if the interpolation isn't an
// easing family.
func EasingFunc(i Interpolation, e Easing) (EaseFunc, bool) {
	fs, have := easings[i]
	if !have {
		return nil, false
	}
	switch e {
	case EaseIn:
		return fs[0], true
	case EaseOut:
		return fs[1], true
	case EaseInOut:
		return fs[2], true
	}
	switch i {
	case Back, Bounce, Elastic:
		return fs[1], true
	}
	return fs[0], true
}

// IsEasing reports whether the interpolation is one of the easing
// families.
func IsEasing(i Interpolation) bool {
	_, is := easings[i]
	return is
}

func linearEase(p EaseParams) float64 {
	return p.Change*p.Time/p.Duration + p.Begin
}

func backIn(p EaseParams) float64 {
	t, s := p.Time/p.Duration, p.Back
	return p.Change*t*t*((s+1)*t-s) + p.Begin
}

func backOut(p EaseParams) float64 {
	t, s := p.Time/p.Duration-1, p.Back
	return p.Change*(t*t*((s+1)*t+s)+1) + p.Begin
}

func backInOut(p EaseParams) float64 {
	s := p.Back * 1.525
	t := p.Time / (p.Duration / 2)
	if t < 1 {
		return p.Change/2*(t*t*((s+1)*t-s)) + p.Begin
	}
	t -= 2
	return p.Change/2*(t*t*((s+1)*t+s)+2) + p.Begin
}

func bounceOut(p EaseParams) float64 {
	t, c, b := p.Time/p.Duration, p.Change, p.Begin
	switch {
	case t < 1/2.75:
		return c*(7.5625*t*t) + b
	case t < 2/2.75:
		t -= 1.5 / 2.75
		return c*(7.5625*t*t+0.75) + b
	case t < 2.5/2.75:
		t -= 2.25 / 2.75
		return c*(7.5625*t*t+0.9375) + b
	}
	t -= 2.625 / 2.75
	return c*(7.5625*t*t+0.984375) + b
}

func bounceIn(p EaseParams) float64 {
	q := p
	q.Time = p.Duration - p.Time
	q.Begin = 0
	return p.Change - bounceOut(q) + p.Begin
}

func bounceInOut(p EaseParams) float64 {
	q := p
	q.Begin = 0
	if p.Time < p.Duration/2 {
		q.Time = p.Time * 2
		return bounceIn(q)*0.5 + p.Begin
	}
	q.Time = p.Time*2 - p.Duration
	return bounceOut(q)*0.5 + p.Change*0.5 + p.Begin
}

func circIn(p EaseParams) float64 {
	t := p.Time / p.Duration
	return -p.Change*(math.Sqrt(1-t*t)-1) + p.Begin
}

func circOut(p EaseParams) float64 {
	t := p.Time/p.Duration - 1
	return p.Change*math.Sqrt(1-t*t) + p.Begin
}

func circInOut(p EaseParams) float64 {
	t := p.Time / (p.Duration / 2)
	if t < 1 {
		return -p.Change/2*(math.Sqrt(1-t*t)-1) + p.Begin
	}
	t -= 2
	return p.Change/2*(math.Sqrt(1-t*t)+1) + p.Begin
}

func cubicIn(p EaseParams) float64 {
	t := p.Time / p.Duration
	return p.Change*t*t*t + p.Begin
}

func cubicOut(p EaseParams) float64 {
	t := p.Time/p.Duration - 1
	return p.Change*(t*t*t+1) + p.Begin
}

func cubicInOut(p EaseParams) float64 {
	t := p.Time / (p.Duration / 2)
	if t < 1 {
		return p.Change/2*t*t*t + p.Begin
	}
	t -= 2
	return p.Change/2*(t*t*t+2) + p.Begin
}

// elasticBlend fades the oscillation in near the start of the
// segment when the amplitude is too small to reach the change.
func elasticBlend(t, change, duration, amplitude, s, f float64) float64 {
	if change != 0 {
		abs := math.Abs(s)
		if amplitude != 0 {
			f *= amplitude / math.Abs(change)
		} else {
			f = 0
		}
		if x := math.Abs(t * duration); x < abs {
			l := x / abs
			f = f*l + (1 - l)
		}
	}
	return f
}

// elasticShape returns the phase shift, the blend factor and the
// effective amplitude.
func elasticShape(t float64, p EaseParams, period float64) (s, f, amp float64) {
	f, amp = 1, p.Amplitude
	if amp == 0 || amp < math.Abs(p.Change) {
		s = period / 4
		f = elasticBlend(t, p.Change, p.Duration, amp, s, f)
		amp = p.Change
	} else {
		s = period / (2 * math.Pi) * math.Asin(p.Change/amp)
	}
	return
}

func elasticWave(t, duration, s, period, amp float64) float64 {
	return amp * math.Pow(2, 10*t) * math.Sin((t*duration-s)*(2*math.Pi)/period)
}

func elasticIn(p EaseParams) float64 {
	if p.Time == 0 {
		return p.Begin
	}
	t := p.Time / p.Duration
	if t == 1 {
		return p.Begin + p.Change
	}
	t -= 1
	period := p.Period
	if period == 0 {
		period = p.Duration * 0.3
	}
	s, f, amp := elasticShape(t, p, period)
	return -f*elasticWave(t, p.Duration, s, period, amp) + p.Begin
}

func elasticOut(p EaseParams) float64 {
	if p.Time == 0 {
		return p.Begin
	}
	t := p.Time / p.Duration
	if t == 1 {
		return p.Begin + p.Change
	}
	t = -t
	period := p.Period
	if period == 0 {
		period = p.Duration * 0.3
	}
	s, f, amp := elasticShape(t, p, period)
	return f*elasticWave(t, p.Duration, s, period, amp) + p.Change + p.Begin
}

func elasticInOut(p EaseParams) float64 {
	if p.Time == 0 {
		return p.Begin
	}
	t := p.Time / (p.Duration / 2)
	if t == 2 {
		return p.Begin + p.Change
	}
	t -= 1
	period := p.Period
	if period == 0 {
		period = p.Duration * (0.3 * 1.5)
	}
	s, f, amp := elasticShape(t, p, period)
	if t < 0 {
		f *= -0.5
		return f*elasticWave(t, p.Duration, s, period, amp) + p.Begin
	}
	t = -t
	f *= 0.5
	return f*elasticWave(t, p.Duration, s, period, amp) + p.Change + p.Begin
}

const (
	// expoPowMin is 2^-10, the value of the raw exponential at the
	// start of the segment.
	expoPowMin   = 0.0009765625
	expoPowScale = 1 / (1 - expoPowMin)
)

func expoIn(p EaseParams) float64 {
	if p.Time == 0 {
		return p.Begin
	}
	return p.Change*(math.Pow(2, 10*(p.Time/p.Duration-1))-expoPowMin)*expoPowScale + p.Begin
}

func expoOut(p EaseParams) float64 {
	if p.Time == 0 {
		return p.Begin
	}
	return p.Change*(1-(math.Pow(2, -10*p.Time/p.Duration)-expoPowMin)*expoPowScale) + p.Begin
}

func expoInOut(p EaseParams) float64 {
	q := p
	q.Duration *= 0.5
	q.Change *= 0.5
	if p.Time < q.Duration {
		return expoIn(q)
	}
	q.Time -= q.Duration
	q.Begin += q.Change
	return expoOut(q)
}

func quadIn(p EaseParams) float64 {
	t := p.Time / p.Duration
	return p.Change*t*t + p.Begin
}

func quadOut(p EaseParams) float64 {
	t := p.Time / p.Duration
	return -p.Change*t*(t-2) + p.Begin
}

func quadInOut(p EaseParams) float64 {
	t := p.Time / (p.Duration / 2)
	if t < 1 {
		return p.Change/2*t*t + p.Begin
	}
	t -= 1
	return -p.Change/2*(t*(t-2)-1) + p.Begin
}

func quartIn(p EaseParams) float64 {
	t := p.Time / p.Duration
	return p.Change*t*t*t*t + p.Begin
}

func quartOut(p EaseParams) float64 {
	t := p.Time/p.Duration - 1
	return -p.Change*(t*t*t*t-1) + p.Begin
}

func quartInOut(p EaseParams) float64 {
	t := p.Time / (p.Duration / 2)
	if t < 1 {
		return p.Change/2*t*t*t*t + p.Begin
	}
	t -= 2
	return -p.Change/2*(t*t*t*t-2) + p.Begin
}

func quintIn(p EaseParams) float64 {
	t := p.Time / p.Duration
	return p.Change*t*t*t*t*t + p.Begin
}

func quintOut(p EaseParams) float64 {
	t := p.Time/p.Duration - 1
	return p.Change*(t*t*t*t*t+1) + p.Begin
}

func quintInOut(p EaseParams) float64 {
	t := p.Time / (p.Duration / 2)
	if t < 1 {
		return p.Change/2*t*t*t*t*t + p.Begin
	}
	t -= 2
	return p.Change/2*(t*t*t*t*t+2) + p.Begin
}

func sineIn(p EaseParams) float64 {
	return -p.Change*math.Cos(p.Time/p.Duration*(math.Pi/2)) + p.Change + p.Begin
}

func sineOut(p EaseParams) float64 {
	return p.Change*math.Sin(p.Time/p.Duration*(math.Pi/2)) + p.Begin
}

func sineInOut(p EaseParams) float64 {
	return -p.Change/2*(math.Cos(math.Pi*p.Time/p.Duration)-1) + p.Begin
}
