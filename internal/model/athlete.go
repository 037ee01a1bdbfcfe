// Package model defines the typed records flowing through the resolution
// pipeline: raw provider rows, unified athletes, and the link table rows
// that tie provider-local identifiers to unified IDs.
package model

// Source identifies which provider a record or link came from.
type Source string

const (
	SourcePWA       Source = "PWA"
	SourceLiveHeats Source = "Live Heats"

	// SourcePWASail is the sail-number alias link a matched athlete gets when
	// its PWA sail number differs from its PWA athlete id.
	SourcePWASail Source = "PWA_sail_number"

	// SourcePWAHeat is the composite Surname_SailNumber key used by PWA heat
	// score rows.
	SourcePWAHeat Source = "PWA_heat"
)

// RawRecord is one athlete row as published by a single provider.
// Zero values mean the provider did not publish that attribute.
type RawRecord struct {
	Source      Source `json:"source"`
	SourceID    string `json:"source_id"`
	Name        string `json:"name"`
	YearOfBirth int    `json:"year_of_birth,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	SailNumber  string `json:"sail_number,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
}

// UnifiedAthlete is the canonical identity for one real-world competitor.
// IDs are assigned once by the registry and never reused.
type UnifiedAthlete struct {
	ID            int64  `json:"id"`
	PrimaryName   string `json:"primary_name"`
	LHName        string `json:"lh_name,omitempty"`
	PWAName       string `json:"pwa_name,omitempty"`
	Nationality   string `json:"nationality,omitempty"`
	YearOfBirth   int    `json:"year_of_birth,omitempty"`
	PWASailNumber string `json:"pwa_sail_number,omitempty"`

	// Provenance: the stage and score of the match that created this athlete.
	// Stage is "pwa_only" or "liveheats_only" for single-source athletes,
	// in which case Score is zero.
	MatchStage string `json:"match_stage,omitempty"`
	MatchScore int    `json:"match_score,omitempty"`
}

// SourceIdentityLink maps one provider-local identifier to a unified athlete.
// (Source, SourceID) is unique across the whole table.
type SourceIdentityLink struct {
	AthleteID int64  `json:"athlete_id"`
	Source    Source `json:"source"`
	SourceID  string `json:"source_id"`
}
