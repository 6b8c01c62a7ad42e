package platform

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Platform
		ok   bool
	}{
		{"Android", Android, true},
		{"android", Android, true},
		{"droid", Android, true},
		{" iOS ", IOS, true},
		{"IOS", IOS, true},
		{"windows", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("Parse(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	for _, p := range All {
		if !p.Valid() {
			t.Fatalf("%q should be valid", p)
		}
	}
	if Platform("").Valid() {
		t.Fatal("zero platform should be invalid")
	}
}

func TestUnmarshalText(t *testing.T) {
	tests := []struct {
		in   string
		want Platform
		ok   bool
	}{
		{`{"p": "android"}`, Android, true},
		{`{"p": "droid"}`, Android, true},
		{`{"p": "ios"}`, IOS, true},
		{`{"p": ""}`, "", true},
		{`{}`, "", true},
		{`{"p": "tizen"}`, "", false},
	}
	for _, tt := range tests {
		var v struct {
			P Platform `json:"p"`
		}
		err := json.Unmarshal([]byte(tt.in), &v)
		if (err == nil) != tt.ok {
			t.Fatalf("Unmarshal(%s) err = %v, want ok=%v", tt.in, err, tt.ok)
		}
		if v.P != tt.want {
			t.Fatalf("Unmarshal(%s) = %q, want %q", tt.in, v.P, tt.want)
		}
	}
}
