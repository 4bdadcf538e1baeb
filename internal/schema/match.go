package schema

import (
	"fmt"
	"time"
)

// MatchRecord holds the gameplay observations for one team in one match.
//
// A match record is identified by the composite key (team number, match
// number). Re-uploading the same key overwrites the prior record in full.
type MatchRecord struct {
	TeamNumber  int `json:"team_number"`
	MatchNumber int `json:"match_number"`

	AutoPoints     int  `json:"auto_points"`
	TeleopPoints   int  `json:"teleop_points"`
	EndgameClimbed bool `json:"endgame_climbed"`
	Fouls          int  `json:"fouls"`
	PlayedDefense  bool `json:"played_defense"`

	Comments  string `json:"comments,omitempty"`
	ScoutedBy string `json:"scouted_by,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// Validate checks that the MatchRecord has valid field values.
func (m *MatchRecord) Validate() error {
	if m.TeamNumber < 1 {
		return fmt.Errorf("team_number must be positive (got %d)", m.TeamNumber)
	}
	if m.MatchNumber < 1 {
		return fmt.Errorf("match_number must be positive (got %d)", m.MatchNumber)
	}
	if m.AutoPoints < 0 || m.TeleopPoints < 0 {
		return fmt.Errorf("points cannot be negative")
	}
	if m.Fouls < 0 {
		return fmt.Errorf("fouls cannot be negative (got %d)", m.Fouls)
	}
	return nil
}

// SetDefaults applies default values for optional fields.
func (m *MatchRecord) SetDefaults() {
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now().UTC()
	}
}
