package match

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// ApplyDecisions folds a manual decision list into the candidate set.
// An accept promotes the candidate to auto_matched; a reject marks it
// rejected, releasing both records for singleton treatment. Decisions that
// reference no pending candidate are logged and ignored. The input slice is
// not mutated.
func ApplyDecisions(candidates []model.MatchCandidate, decisions []model.ManualDecision) []model.MatchCandidate {
	log := zap.L().With(zap.String("component", "review_queue"))

	out := make([]model.MatchCandidate, len(candidates))
	copy(out, candidates)

	pending := make(map[string]int, len(out))
	for i, c := range out {
		if c.Status == model.StatusNeedsReview {
			pending[pairKey(c.LeftID, c.RightID)] = i
		}
	}

	accepted, rejected := 0, 0
	for _, d := range decisions {
		i, ok := pending[pairKey(d.LeftID, d.RightID)]
		if !ok {
			log.Warn("manual decision references no pending candidate",
				zap.String("left_id", d.LeftID),
				zap.String("right_id", d.RightID),
			)
			continue
		}
		switch d.Decision {
		case model.DecisionAccept:
			out[i].Status = model.StatusAutoMatched
			accepted++
		case model.DecisionReject:
			out[i].Status = model.StatusRejected
			rejected++
		default:
			log.Warn("unknown manual decision verdict",
				zap.String("decision", string(d.Decision)),
				zap.String("left_id", d.LeftID),
			)
		}
		delete(pending, pairKey(d.LeftID, d.RightID))
	}

	if accepted+rejected > 0 {
		log.Info("manual decisions applied",
			zap.Int("accepted", accepted),
			zap.Int("rejected", rejected),
			zap.Int("still_pending", len(pending)),
		)
	}
	return out
}

// Pending returns the candidates still awaiting a decision.
func Pending(candidates []model.MatchCandidate) []model.MatchCandidate {
	var out []model.MatchCandidate
	for _, c := range candidates {
		if c.Status == model.StatusNeedsReview {
			out = append(out, c)
		}
	}
	return out
}

func pairKey(leftID, rightID string) string {
	return fmt.Sprintf("%s|%s", leftID, rightID)
}
