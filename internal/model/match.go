package model

// MatchStatus classifies the outcome of a candidate pair. Absence of a match
// is a reportable outcome, not an error.
type MatchStatus string

const (
	StatusAutoMatched MatchStatus = "auto_matched"
	StatusNeedsReview MatchStatus = "needs_review"
	StatusUnmatched   MatchStatus = "unmatched"
	StatusNoMatch     MatchStatus = "no_match"
	StatusRejected    MatchStatus = "rejected"
)

// Stage labels for the athlete identity matcher. Stage order is fixed;
// each stage only sees records left unmatched by the stages before it.
const (
	StageExact     = "exact"
	StageFuzzy     = "fuzzy"
	StageBirthYear = "birth_year"
	StageCountry   = "country"

	// Singleton stages for records no cross-source stage claimed.
	StagePWAOnly       = "pwa_only"
	StageLiveHeatsOnly = "liveheats_only"
)

// MatchCandidate pairs a left-pool record with its best right-pool match.
// Candidates are transient: they live in the resolution run and its audit
// report, never in the database.
type MatchCandidate struct {
	LeftID    string      `json:"left_id"`
	LeftName  string      `json:"left_name"`
	RightID   string      `json:"right_id"`
	RightName string      `json:"right_name"`
	Score     int         `json:"score"`
	Stage     string      `json:"stage"`
	Status    MatchStatus `json:"status"`
}

// Decision is a manual verdict on a borderline candidate.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ManualDecision overrides one needs_review candidate. Decisions are consumed
// once, before registry finalization, and never re-evaluated.
type ManualDecision struct {
	LeftID   string   `json:"left_id"`
	RightID  string   `json:"right_id"`
	Decision Decision `json:"decision"`
}

// HeatScoreKey is one distinct composite athlete key observed in PWA heat
// score rows, together with the display name and sail number those rows carry.
type HeatScoreKey struct {
	CompositeID string `json:"composite_id"`
	AthleteName string `json:"athlete_name"`
	SailNumber  string `json:"sail_number"`
}

// HeatKeyMatch records the resolution of one composite key against the
// unified athlete pool.
type HeatKeyMatch struct {
	CompositeID string      `json:"composite_id"`
	AthleteName string      `json:"athlete_name"`
	SailNumber  string      `json:"sail_number"`
	AthleteID   int64       `json:"athlete_id,omitempty"`
	MatchedName string      `json:"matched_name,omitempty"`
	Score       int         `json:"score"`
	Stage       string      `json:"stage,omitempty"`
	Status      MatchStatus `json:"status"`
}

// Heat key resolver stage labels.
const (
	HeatStageExactKey  = "exact_key"
	HeatStageSailFuzzy = "sail_fuzzy_surname"
	HeatStageNameFuzzy = "name_fuzzy"
)
