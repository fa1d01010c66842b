package testutil

import (
	"math"
	"reflect"
	"testing"
)

type Person struct {
	Name string
	Age  int
}

func TestJS(t *testing.T) {
	tests := []struct {
		name string
		arg  interface{}
		want string
	}{
		{
			name: "simple struct",
			arg:  Person{"John Doe", 30},
			want: `{"Name":"John Doe","Age":30}`,
		},
		{
			name: "float",
			arg:  2.5,
			want: `2.5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JS(tt.arg); got != tt.want {
				t.Errorf("JS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDwimjs(t *testing.T) {
	got := Dwimjs(`{"value":30}`)
	want := map[string]interface{}{"value": float64(30)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Dwimjs() = %v, want %v", got, want)
	}
	if got := Dwimjs(12345); got != 12345 {
		t.Fatalf("Dwimjs() = %v", got)
	}
}

func TestNear(t *testing.T) {
	if !Near(1, 1+1e-9, 0) {
		t.Fatal("should be near")
	}
	if Near(1, 1.1, 0.01) {
		t.Fatal("shouldn't be near")
	}
	if Near(math.NaN(), math.NaN(), 1) {
		t.Fatal("NaN isn't near anything")
	}
}
