package schema

import (
	"errors"
	"testing"
)

func TestParseScannedPit(t *testing.T) {
	data := []byte(`{"kind":"pit","record":{"team_number":3990,"team_name":"Example","can_climb":true}}`)

	p, err := ParseScanned(data)
	if err != nil {
		t.Fatalf("ParseScanned failed: %v", err)
	}
	if p.Kind != KindPit {
		t.Errorf("kind = %q, want %q", p.Kind, KindPit)
	}
	if p.Team == nil || p.Team.TeamNumber != 3990 || !p.Team.CanClimb {
		t.Errorf("unexpected team record: %+v", p.Team)
	}
	if p.Match != nil {
		t.Error("match should be nil for a pit payload")
	}
}

func TestParseScannedMatch(t *testing.T) {
	data := []byte(`{"kind":"match","record":{"team_number":3990,"match_number":7,"auto_points":10}}`)

	p, err := ParseScanned(data)
	if err != nil {
		t.Fatalf("ParseScanned failed: %v", err)
	}
	if p.Kind != KindMatch {
		t.Errorf("kind = %q, want %q", p.Kind, KindMatch)
	}
	if p.Match == nil || p.Match.MatchNumber != 7 {
		t.Errorf("unexpected match record: %+v", p.Match)
	}
	if p.Match.RecordedAt.IsZero() {
		t.Error("expected RecordedAt default to be stamped")
	}
}

func TestParseScannedMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"unknown kind", `{"kind":"robot","record":{}}`},
		{"missing record", `{"kind":"pit"}`},
		{"wrong record shape", `{"kind":"pit","record":{"team_number":"not-a-number"}}`},
		{"invalid record", `{"kind":"pit","record":{"team_number":0,"team_name":""}}`},
		{"invalid match", `{"kind":"match","record":{"team_number":3990,"match_number":0}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScanned([]byte(tc.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("error %v should wrap ErrMalformedPayload", err)
			}
		})
	}
}
