package registry

import (
	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/match"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// Profile is a unified athlete plus the source identity links that anchor it.
type Profile struct {
	Athlete model.UnifiedAthlete
	Links   []model.SourceIdentityLink
}

// BuildProfiles turns a matching outcome into persistable profiles. Accepted
// pairs become merged athletes, rejected pairs and unmatched records become
// per-source singletons, and undecided review candidates produce nothing
// until a decision claims them.
//
// LiveHeats is the preferred source for display fields: the merged primary
// name, nationality and year of birth come from the LiveHeats record, with
// PWA filling any gaps.
func BuildProfiles(candidates []model.MatchCandidate, liveheats, pwa []model.RawRecord) []Profile {
	log := zap.L().With(zap.String("component", "registry"))

	lhByID := recordsByID(liveheats)
	pwaByID := recordsByID(pwa)

	var profiles []Profile
	matched := 0
	rejected := 0
	withheld := 0
	consumedLH := make(map[string]bool)
	consumedPWA := make(map[string]bool)

	for _, c := range candidates {
		lh, lhOK := lhByID[c.LeftID]
		pw, pwOK := pwaByID[c.RightID]
		if !lhOK || !pwOK {
			log.Warn("registry: candidate references unknown record",
				zap.String("left_id", c.LeftID),
				zap.String("right_id", c.RightID),
			)
			continue
		}

		switch c.Status {
		case model.StatusAutoMatched:
			profiles = append(profiles, mergedProfile(lh, pw, c))
			consumedLH[lh.SourceID] = true
			consumedPWA[pw.SourceID] = true
			matched++
		case model.StatusRejected:
			profiles = append(profiles, liveHeatsSingleton(lh), pwaSingleton(pw))
			consumedLH[lh.SourceID] = true
			consumedPWA[pw.SourceID] = true
			rejected++
		case model.StatusNeedsReview:
			// Undecided: both records stay out of the registry.
			consumedLH[lh.SourceID] = true
			consumedPWA[pw.SourceID] = true
			withheld++
		}
	}

	for _, rec := range liveheats {
		if rec.Name == "" || consumedLH[rec.SourceID] {
			continue
		}
		profiles = append(profiles, liveHeatsSingleton(rec))
	}
	for _, rec := range pwa {
		if rec.Name == "" || consumedPWA[rec.SourceID] {
			continue
		}
		profiles = append(profiles, pwaSingleton(rec))
	}

	log.Info("registry: profiles built",
		zap.Int("total", len(profiles)),
		zap.Int("merged", matched),
		zap.Int("rejected_pairs", rejected),
		zap.Int("withheld_for_review", withheld),
	)
	return profiles
}

func mergedProfile(lh, pwa model.RawRecord, c model.MatchCandidate) Profile {
	a := model.UnifiedAthlete{
		PrimaryName:   match.CorrectName(lh.Name),
		LHName:        lh.Name,
		PWAName:       pwa.Name,
		Nationality:   lh.Nationality,
		YearOfBirth:   lh.YearOfBirth,
		PWASailNumber: pwa.SailNumber,
		MatchStage:    c.Stage,
		MatchScore:    c.Score,
	}
	if a.Nationality == "" {
		a.Nationality = pwa.Nationality
	}
	if a.YearOfBirth == 0 {
		a.YearOfBirth = pwa.YearOfBirth
	}

	links := []model.SourceIdentityLink{
		{Source: model.SourceLiveHeats, SourceID: lh.SourceID},
		{Source: model.SourcePWA, SourceID: pwa.SourceID},
	}
	return Profile{Athlete: a, Links: appendSailLink(links, pwa)}
}

func liveHeatsSingleton(rec model.RawRecord) Profile {
	return Profile{
		Athlete: model.UnifiedAthlete{
			PrimaryName: match.CorrectName(rec.Name),
			LHName:      rec.Name,
			Nationality: rec.Nationality,
			YearOfBirth: rec.YearOfBirth,
			MatchStage:  model.StageLiveHeatsOnly,
		},
		Links: []model.SourceIdentityLink{
			{Source: model.SourceLiveHeats, SourceID: rec.SourceID},
		},
	}
}

func pwaSingleton(rec model.RawRecord) Profile {
	links := []model.SourceIdentityLink{
		{Source: model.SourcePWA, SourceID: rec.SourceID},
	}
	return Profile{
		Athlete: model.UnifiedAthlete{
			PrimaryName:   match.CorrectName(rec.Name),
			PWAName:       rec.Name,
			Nationality:   rec.Nationality,
			YearOfBirth:   rec.YearOfBirth,
			PWASailNumber: rec.SailNumber,
			MatchStage:    model.StagePWAOnly,
		},
		Links: appendSailLink(links, rec),
	}
}

// appendSailLink adds the sail-number alias link that lets heat-score rows
// keyed by sail number resolve to the same athlete as the PWA profile id.
func appendSailLink(links []model.SourceIdentityLink, pwa model.RawRecord) []model.SourceIdentityLink {
	if pwa.SailNumber != "" && pwa.SailNumber != pwa.SourceID {
		links = append(links, model.SourceIdentityLink{
			Source:   model.SourcePWASail,
			SourceID: pwa.SailNumber,
		})
	}
	return links
}

func recordsByID(records []model.RawRecord) map[string]model.RawRecord {
	m := make(map[string]model.RawRecord, len(records))
	for _, rec := range records {
		m[rec.SourceID] = rec
	}
	return m
}
