package source

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/fetcher"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/resilience"
)

// The eventDivision query is the only publicly reachable way to enumerate
// athletes: they are nested under heats/competitors.
const athletesQuery = `query getAthleteInfo($id: ID!) {
  eventDivision(id: $id) {
    heats {
      competitors {
        athlete { id name image dob nationality }
      }
    }
  }
}`

const rankingsQuery = `query getEventDivision($id: ID!) {
  eventDivision(id: $id) {
    division { id name }
    heats {
      round roundPosition
      result { athleteId place }
    }
  }
}`

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlAthletesResponse struct {
	Data struct {
		EventDivision *struct {
			Heats []struct {
				Competitors []struct {
					Athlete struct {
						ID          string `json:"id"`
						Name        string `json:"name"`
						Image       string `json:"image"`
						DOB         string `json:"dob"`
						Nationality string `json:"nationality"`
					} `json:"athlete"`
				} `json:"competitors"`
			} `json:"heats"`
		} `json:"eventDivision"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

type gqlRankingsResponse struct {
	Data struct {
		EventDivision *struct {
			Division struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"division"`
			Heats []struct {
				Round         string `json:"round"`
				RoundPosition int    `json:"roundPosition"`
				Result        []struct {
					AthleteID string   `json:"athleteId"`
					Place     *float64 `json:"place"`
				} `json:"result"`
			} `json:"heats"`
		} `json:"eventDivision"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

// LiveHeatsClient queries the public Live Heats GraphQL endpoint.
type LiveHeatsClient struct {
	fetch fetcher.Fetcher
	url   string
	retry resilience.RetryConfig
	log   *zap.Logger
}

// NewLiveHeatsClient creates a client for the given GraphQL endpoint
// (normally https://liveheats.com/api/graphql).
func NewLiveHeatsClient(f fetcher.Fetcher, url string) *LiveHeatsClient {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("liveheats", "graphql")
	return &LiveHeatsClient{
		fetch: f,
		url:   url,
		retry: cfg,
		log:   zap.L().With(zap.String("component", "source.liveheats")),
	}
}

// post runs one GraphQL query and decodes the response into out. Transport
// and decode failures are retried; GraphQL-level errors are not.
func (c *LiveHeatsClient) post(ctx context.Context, query, divisionID string, out any) error {
	payload, err := json.Marshal(gqlRequest{
		Query:     query,
		Variables: map[string]any{"id": divisionID},
	})
	if err != nil {
		return eris.Wrap(err, "liveheats: marshal request")
	}

	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		body, err := c.fetch.PostJSON(ctx, c.url, payload)
		if err != nil {
			return err
		}
		defer body.Close() //nolint:errcheck

		if err := json.NewDecoder(body).Decode(out); err != nil {
			// Truncated responses show up as decode errors.
			return resilience.NewTransientError(eris.Wrap(err, "liveheats: decode response"), 0)
		}
		return nil
	})
}

// DivisionAthletes returns the unique athletes that competed in an event
// division, in first-seen heat order.
func (c *LiveHeatsClient) DivisionAthletes(ctx context.Context, divisionID string) ([]model.RawRecord, error) {
	var resp gqlAthletesResponse
	if err := c.post(ctx, athletesQuery, divisionID, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, eris.Errorf("liveheats: division %s: %s", divisionID, resp.Errors[0].Message)
	}
	if resp.Data.EventDivision == nil {
		c.log.Warn("division not found", zap.String("division_id", divisionID))
		return nil, nil
	}

	seen := make(map[string]bool)
	var records []model.RawRecord
	for _, heat := range resp.Data.EventDivision.Heats {
		for _, comp := range heat.Competitors {
			a := comp.Athlete
			if a.ID == "" || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			records = append(records, model.RawRecord{
				Source:      model.SourceLiveHeats,
				SourceID:    a.ID,
				Name:        a.Name,
				YearOfBirth: yearFromDOB(a.DOB),
				Nationality: a.Nationality,
				ProfileURL:  a.Image,
			})
		}
	}
	c.log.Info("fetched division athletes",
		zap.String("division_id", divisionID),
		zap.Int("athletes", len(records)),
	)
	return records, nil
}

// DivisionRankings computes final placements for an event division from the
// full heat ladder. An athlete's standing is their furthest round, broken by
// their best heat placement in that round; equal standings share a rank.
func (c *LiveHeatsClient) DivisionRankings(ctx context.Context, eventID, divisionID string) ([]model.ResultRow, error) {
	var resp gqlRankingsResponse
	if err := c.post(ctx, rankingsQuery, divisionID, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, eris.Errorf("liveheats: division %s: %s", divisionID, resp.Errors[0].Message)
	}
	if resp.Data.EventDivision == nil {
		c.log.Warn("division not found", zap.String("division_id", divisionID))
		return nil, nil
	}

	type standing struct {
		athleteID string
		round     int
		place     int
	}
	best := make(map[string]standing)
	for _, heat := range resp.Data.EventDivision.Heats {
		for _, res := range heat.Result {
			if res.AthleteID == "" {
				continue
			}
			place := 999
			if res.Place != nil {
				place = int(*res.Place)
			}
			cur, ok := best[res.AthleteID]
			if !ok || heat.RoundPosition > cur.round ||
				(heat.RoundPosition == cur.round && place < cur.place) {
				best[res.AthleteID] = standing{res.AthleteID, heat.RoundPosition, place}
			}
		}
	}

	standings := make([]standing, 0, len(best))
	for _, s := range best {
		standings = append(standings, s)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].round != standings[j].round {
			return standings[i].round > standings[j].round
		}
		if standings[i].place != standings[j].place {
			return standings[i].place < standings[j].place
		}
		return standings[i].athleteID < standings[j].athleteID
	})

	division := resp.Data.EventDivision.Division.Name
	rows := make([]model.ResultRow, 0, len(standings))
	rank := 1
	for i, s := range standings {
		if i > 0 && (s.round != standings[i-1].round || s.place != standings[i-1].place) {
			rank = i + 1
		}
		rows = append(rows, model.ResultRow{
			Source:          model.SourceLiveHeats,
			EventID:         eventID,
			Division:        division,
			Placement:       rank,
			SourceAthleteID: s.athleteID,
		})
	}
	c.log.Info("computed division rankings",
		zap.String("division_id", divisionID),
		zap.String("division", division),
		zap.Int("athletes", len(rows)),
	)
	return rows, nil
}

func yearFromDOB(dob string) int {
	if dob == "" {
		return 0
	}
	year, err := strconv.Atoi(strings.SplitN(dob, "-", 2)[0])
	if err != nil {
		return 0
	}
	return year
}
