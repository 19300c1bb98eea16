package models

import "testing"

func TestClassOf(t *testing.T) {
	cases := []struct {
		id   string
		want MachineClass
	}{
		{"H29424", ClassHigh},
		{"M14860", ClassMedium},
		{"L4718", ClassLow},
		{"X1234", ClassLow},
		{"", ClassLow},
	}
	for _, tc := range cases {
		if got := ClassOf(tc.id); got != tc.want {
			t.Errorf("ClassOf(%q) = %s, want %s", tc.id, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"Normal", StatusNormal, true},
		{"normal", StatusNormal, true},
		{"Warning", StatusWarning, true},
		{"warning", StatusWarning, true},
		{"Failure", StatusFailure, true},
		{"failure", StatusFailure, true},
		{"bogus", StatusUnknown, false},
		{"", StatusUnknown, false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseStatus(%q) = (%s, %t), want (%s, %t)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestScored(t *testing.T) {
	var m Machine
	if m.Scored() {
		t.Fatal("zero machine must not report scored")
	}
	p := 0.4
	m.LastProbability = &p
	if !m.Scored() {
		t.Fatal("machine with probability must report scored")
	}
}
