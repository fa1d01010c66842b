package modifiers

import (
	"encoding/json"
	"fmt"
)

// New makes a modifier of the given kind with its default settings.
func New(k Kind) (Modifier, error) {
	switch k {
	case KindCycles:
		return NewCycles(), nil
	case KindGenerator:
		return NewGenerator(), nil
	case KindFnGenerator:
		return NewFnGenerator(FnSin), nil
	case KindEnvelope:
		return NewEnvelope(), nil
	case KindLimits:
		return &Limits{}, nil
	case KindStepped:
		return NewStepped(), nil
	}
	return nil, fmt.Errorf("unknown modifier type %q", k)
}

// Encode renders a modifier as a map with a "type" property.
func Encode(m Modifier) (map[string]interface{}, error) {
	js, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var x map[string]interface{}
	if err = json.Unmarshal(js, &x); err != nil {
		return nil, err
	}
	x["type"] = string(m.Kind())
	return x, nil
}

// Decode makes a modifier from a map like the one Encode makes.
// Properties that aren't given keep their defaults (see New).
func Decode(x map[string]interface{}) (Modifier, error) {
	t, is := x["type"].(string)
	if !is {
		return nil, fmt.Errorf("modifier has no type: %#v", x)
	}
	m, err := New(Kind(t))
	if err != nil {
		return nil, err
	}

	js, err := json.Marshal(x)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(js, m); err != nil {
		return nil, fmt.Errorf("bad %s modifier: %w", t, err)
	}

	if g, is := m.(*Generator); is {
		g.Verify()
	}
	if e, is := m.(*Envelope); is {
		ps := e.Points
		e.Points = nil
		for _, p := range ps {
			e.AddPoint(p)
		}
	}

	return m, nil
}

// DecodeStack makes a Stack from a list of maps.
func DecodeStack(xs []interface{}) (*Stack, error) {
	s := NewStack()
	for i, x := range xs {
		m, is := x.(map[string]interface{})
		if !is {
			return nil, fmt.Errorf("modifier %d isn't a map: %T", i, x)
		}
		mod, err := Decode(m)
		if err != nil {
			return nil, fmt.Errorf("modifier %d: %w", i, err)
		}
		s.Add(mod)
	}
	return s, nil
}

// EncodeStack renders a Stack as a list of maps.
func EncodeStack(s *Stack) ([]interface{}, error) {
	acc := make([]interface{}, 0, s.Len())
	for _, m := range s.Modifiers {
		x, err := Encode(m)
		if err != nil {
			return nil, err
		}
		acc = append(acc, x)
	}
	return acc, nil
}
