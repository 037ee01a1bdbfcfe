package model

import "fmt"

// ResultRow is one placement row from a provider's published result set.
type ResultRow struct {
	Source          Source  `json:"source"`
	EventID         string  `json:"event_id"`
	EventName       string  `json:"event_name,omitempty"`
	Division        string  `json:"division"`
	Placement       int     `json:"placement"`
	SourceAthleteID string  `json:"source_athlete_id"`
	AthleteName     string  `json:"athlete_name,omitempty"`
	SailNumber      string  `json:"sail_number,omitempty"`
	Points          float64 `json:"points,omitempty"`
}

// DivisionKey identifies the unit at which result-set conflicts are resolved.
func (r ResultRow) DivisionKey() string {
	return fmt.Sprintf("%s|%s", r.EventID, r.Division)
}

// MergedResultSet is the deduplicated result corpus: for every contested
// division exactly one provider's rows survive.
type MergedResultSet struct {
	Rows []ResultRow `json:"rows"`

	// KeptDivisions maps each division key to the source whose rows were kept.
	KeptDivisions map[string]Source `json:"kept_divisions"`

	// DroppedRows counts rows discarded per division key.
	DroppedRows map[string]int `json:"dropped_rows,omitempty"`
}
