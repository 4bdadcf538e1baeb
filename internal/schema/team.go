// Package schema provides the data structures shared by the scouting
// sync engine: team records, match records, and the reconciled dataset.
package schema

import (
	"fmt"
	"time"
)

// TeamRecord holds the pit scouting data for a single team.
//
// A team is identified by its team number. The Matches slice is a
// denormalized view of the remote match sub-collection; it is populated
// by fetches and ignored by uploads (matches are written individually).
// Writes use full-document overwrite semantics: the record is the sole
// source of truth after a successful upload, with no field-level merge.
type TeamRecord struct {
	TeamNumber int    `json:"team_number"`
	TeamName   string `json:"team_name"`

	// Robot specifications gathered during pit scouting.
	DriveTrain  string  `json:"drive_train,omitempty"`
	RobotWeight float64 `json:"robot_weight,omitempty"`

	// Capability flags.
	CanClimb     bool `json:"can_climb"`
	CanShootHigh bool `json:"can_shoot_high"`
	CanShootLow  bool `json:"can_shoot_low"`

	Notes     string `json:"notes,omitempty"`
	ScoutedBy string `json:"scouted_by,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`

	Matches []*MatchRecord `json:"matches"`
}

// Validate checks that the TeamRecord has valid field values.
func (t *TeamRecord) Validate() error {
	if t.TeamNumber < 1 {
		return fmt.Errorf("team_number must be positive (got %d)", t.TeamNumber)
	}
	if t.TeamName == "" {
		return fmt.Errorf("team_name is required")
	}
	if len(t.TeamName) > 100 {
		return fmt.Errorf("team_name must be 100 characters or less (got %d)", len(t.TeamName))
	}
	if t.RobotWeight < 0 {
		return fmt.Errorf("robot_weight cannot be negative (got %v)", t.RobotWeight)
	}
	return nil
}

// SetDefaults applies default values for optional fields.
func (t *TeamRecord) SetDefaults() {
	if t.Matches == nil {
		t.Matches = []*MatchRecord{}
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}
}

// PlaceholderTeam builds the default team record written when a match is
// uploaded for a team with no remote document yet. A later pit upload
// for the same team number overwrites it in full.
func PlaceholderTeam(teamNumber int) *TeamRecord {
	return &TeamRecord{
		TeamNumber: teamNumber,
		TeamName:   fmt.Sprintf("Team %d", teamNumber),
		UpdatedAt:  time.Now().UTC(),
		Matches:    []*MatchRecord{},
	}
}
