package jsonutil

import (
	"encoding/json"
	"math"
	"testing"
)

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{name: "string value", input: "hello", want: "hello", wantOK: true},
		{name: "string is trimmed", input: "  Oxford ", want: "Oxford", wantOK: true},
		{name: "blank string", input: "   ", want: "", wantOK: false},
		{name: "integral float", input: float64(42), want: "42", wantOK: true},
		{name: "fractional float", input: 3.14, want: "3.14", wantOK: true},
		{name: "int value", input: 7, want: "7", wantOK: true},
		{name: "json number", input: json.Number("12.5"), want: "12.5", wantOK: true},
		{name: "boolean", input: true, want: "true", wantOK: true},
		{name: "nil", input: nil, want: "", wantOK: false},
		{name: "map is rejected", input: map[string]any{"a": 1}, want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FlexibleString(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("FlexibleString(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("FlexibleString(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFlexibleFloat(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{name: "float", input: 21.5, want: 21.5, wantOK: true},
		{name: "int", input: 40, want: 40, wantOK: true},
		{name: "numeric string", input: " -0.5 ", want: -0.5, wantOK: true},
		{name: "json number", input: json.Number("10"), want: 10, wantOK: true},
		{name: "non-numeric string", input: "wet", wantOK: false},
		{name: "nan string", input: "NaN", wantOK: false},
		{name: "infinity", input: math.Inf(1), wantOK: false},
		{name: "bool", input: false, wantOK: false},
		{name: "nil", input: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FlexibleFloat(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("FlexibleFloat(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("FlexibleFloat(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFlexibleInt(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   int64
		wantOK bool
	}{
		{name: "int", input: 7, want: 7, wantOK: true},
		{name: "integral float", input: float64(7), want: 7, wantOK: true},
		{name: "fractional float", input: 7.5, wantOK: false},
		{name: "numeric string", input: "12", want: 12, wantOK: true},
		{name: "float string", input: "12.0", want: 12, wantOK: true},
		{name: "json number", input: json.Number("9007199254740993"), want: 9007199254740993, wantOK: true},
		{name: "garbage", input: "seven", wantOK: false},
		{name: "nil", input: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FlexibleInt(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("FlexibleInt(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("FlexibleInt(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFlexibleStrings(t *testing.T) {
	got := FlexibleStrings([]any{"Rosa", " ", nil, "Rosa canina"})
	if len(got) != 2 || got[0] != "Rosa" || got[1] != "Rosa canina" {
		t.Errorf("unexpected list result: %v", got)
	}

	got = FlexibleStrings("Rosa")
	if len(got) != 1 || got[0] != "Rosa" {
		t.Errorf("single string should become one-element list, got %v", got)
	}

	if got := FlexibleStrings(nil); got != nil {
		t.Errorf("nil should give nil, got %v", got)
	}
}

func TestFlexibleMap_StringifiesYAMLKeys(t *testing.T) {
	m, ok := FlexibleMap(map[any]any{"email": "jane@x.com", 1: "one"})
	if !ok {
		t.Fatal("expected map[any]any to be accepted")
	}
	if m["email"] != "jane@x.com" || m["1"] != "one" {
		t.Errorf("unexpected map: %v", m)
	}

	if _, ok := FlexibleMap("not a map"); ok {
		t.Error("string should not be accepted as a map")
	}
}
