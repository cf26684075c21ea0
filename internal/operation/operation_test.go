package operation

import (
	"bytes"
	"reflect"
	"testing"
	"time"
)

func step(v float64) *float64 { return &v }

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
	}{
		{"assign float", &AssignFloat{Path: NewPath("params/lr"), Value: 0.001}},
		{"assign int", &AssignInt{Path: NewPath("params/epochs"), Value: 42}},
		{"assign bool", &AssignBool{Path: NewPath("params/shuffle"), Value: true}},
		{"assign string", &AssignString{Path: NewPath("sys/name"), Value: "baseline"}},
		{"assign datetime", NewAssignDatetime(NewPath("sys/started"), time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC))},
		{"log floats", &LogFloats{
			Path: NewPath("metrics/loss"),
			Values: []FloatLogValue{
				{Value: 0.5, Step: step(1), TS: 1714558200.25},
				{Value: 0.25, TS: 1714558201.5},
			},
		}},
		{"log strings", &LogStrings{
			Path:   NewPath("monitoring/stdout"),
			Values: []StringLogValue{{Value: "epoch 1 done", TS: 1714558200}},
		}},
		{"clear float log", &ClearFloatLog{Path: NewPath("metrics/loss")}},
		{"clear string log", &ClearStringLog{Path: NewPath("monitoring/stdout")}},
		{"add strings", &AddStrings{Path: NewPath("sys/tags"), Values: []string{"prod", "v2"}}},
		{"remove strings", &RemoveStrings{Path: NewPath("sys/tags"), Values: []string{"draft"}}},
		{"clear string set", &ClearStringSet{Path: NewPath("sys/tags")}},
		{"delete", &Delete{Path: NewPath("params/obsolete")}},
		{"copy", &Copy{
			Path:                NewPath("params/lr"),
			SourceContainerID:   "PRJ-1",
			SourceContainerType: "project",
			SourcePath:          NewPath("defaults/lr"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.op)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			if bytes.ContainsRune(data, '\n') {
				t.Errorf("Encode() produced a multi-line record: %q", data)
			}

			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if !reflect.DeepEqual(got, tt.op) {
				t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, tt.op)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"unknown kind", `{"type":"Teleport","body":{"path":["a"]}}`},
		{"malformed body", `{"type":"AssignFloat","body":{"path":["a"],"value":"x"}}`},
		{"truncated", `{"type":"AssignFloat","bo`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); err == nil {
				t.Errorf("Decode(%q) expected error, got nil", tt.data)
			}
		})
	}
}

func TestKind_CoversEveryType(t *testing.T) {
	ops := []Operation{
		&AssignFloat{}, &AssignInt{}, &AssignBool{}, &AssignString{},
		&AssignDatetime{}, &LogFloats{}, &LogStrings{}, &ClearFloatLog{},
		&ClearStringLog{}, &AddStrings{}, &RemoveStrings{}, &ClearStringSet{},
		&Delete{}, &Copy{},
	}

	seen := make(map[Kind]bool)
	for _, op := range ops {
		if op.Kind() == "" {
			t.Errorf("%T has empty kind", op)
		}
		if seen[op.Kind()] {
			t.Errorf("duplicate kind %q", op.Kind())
		}
		seen[op.Kind()] = true
	}
}

func TestAssignDatetime_MillisecondPrecision(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)
	op := NewAssignDatetime(NewPath("sys/ping"), at)

	want := time.Date(2024, 5, 1, 12, 30, 0, 123000000, time.UTC)
	if !op.Value().Equal(want) {
		t.Errorf("Value() = %v, want %v", op.Value(), want)
	}
}

func TestPath_String(t *testing.T) {
	p := NewPath("metrics/train/loss")
	if len(p) != 3 {
		t.Fatalf("NewPath() len = %d, want 3", len(p))
	}
	if p.String() != "metrics/train/loss" {
		t.Errorf("String() = %q, want %q", p.String(), "metrics/train/loss")
	}
}
