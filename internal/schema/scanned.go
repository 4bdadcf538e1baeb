package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Payload kinds carried by scanned QR transfers between devices.
const (
	KindPit   = "pit"
	KindMatch = "match"
)

// ErrMalformedPayload reports a scanned payload that failed to parse as
// a valid record. Callers must reject such payloads before staging, so
// staged records are always well-formed.
var ErrMalformedPayload = errors.New("malformed scanned payload")

// ScannedPayload is the envelope transferred via QR code between
// scouting devices: {"kind": "pit"|"match", "record": {...}}.
// Exactly one of Team or Match is set, matching Kind.
type ScannedPayload struct {
	Kind  string
	Team  *TeamRecord
	Match *MatchRecord
}

// ParseScanned parses and validates a scanned payload.
//
// The kind field is sniffed first so an unknown kind is reported before
// any record decoding is attempted. The embedded record is decoded
// strictly and validated; any failure is wrapped in ErrMalformedPayload.
func ParseScanned(data []byte) (*ScannedPayload, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformedPayload)
	}

	kind := gjson.GetBytes(data, "kind").String()
	record := gjson.GetBytes(data, "record")
	if !record.Exists() {
		return nil, fmt.Errorf("%w: missing record", ErrMalformedPayload)
	}

	switch kind {
	case KindPit:
		var team TeamRecord
		if err := json.Unmarshal([]byte(record.Raw), &team); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		team.SetDefaults()
		if err := team.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return &ScannedPayload{Kind: KindPit, Team: &team}, nil

	case KindMatch:
		var match MatchRecord
		if err := json.Unmarshal([]byte(record.Raw), &match); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		match.SetDefaults()
		if err := match.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return &ScannedPayload{Kind: KindMatch, Match: &match}, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedPayload, kind)
	}
}
