// Package source pulls athlete and result data from the two providers:
// the PWA World Tour site (HTML scraping) and the Live Heats GraphQL API.
package source

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/fetcher"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// The sailor listing and profile pages hang off page id 7. The cHash below is
// accepted for every athlete page.
const (
	pwaSailorPage   = "index.php?id=7"
	pwaProfileHash  = "3079be6910811c9a204a0edff446b23b"
	pwaResultsPage  = "index.php?id=193&type=21&tx_pwaevent_pi1%%5Baction%%5D=results&tx_pwaevent_pi1%%5BshowUid%%5D=%s"
	pwaDivisionPage = pwaResultsPage + "&tx_pwaevent_pi1%%5BeventDiscipline%%5D=%s"
)

var (
	// Profile hrefs appear both raw and URL-encoded depending on the page.
	showUIDPattern     = regexp.MustCompile(`(?:tx_pwasailor_pi1(?:%5B|\[)showUid(?:%5D|\])|showUid)=(\d+)`)
	disciplinePattern  = regexp.MustCompile(`tx_pwaevent_pi1(?:%5B|\[)eventDiscipline(?:%5D|\])=(\d+)`)
	sailNoPattern      = regexp.MustCompile(`\b([A-Z]{1,3}-\d+)\b`)
	agePattern         = regexp.MustCompile(`(?i)Age:\s*(\d+)`)
	nationalityPattern = regexp.MustCompile(`(?i)Nationality:\s*([^\n]+)`)
)

// PWAClient scrapes athlete profiles and event results from the PWA site.
type PWAClient struct {
	fetch   fetcher.Fetcher
	baseURL string
	log     *zap.Logger
}

// NewPWAClient creates a scraper rooted at baseURL
// (normally https://www.pwaworldtour.com).
func NewPWAClient(f fetcher.Fetcher, baseURL string) *PWAClient {
	return &PWAClient{
		fetch:   f,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     zap.L().With(zap.String("component", "source.pwa")),
	}
}

func (c *PWAClient) document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := c.fetch.Download(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "pwa: fetch %s", url)
	}
	defer body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrapf(err, "pwa: parse %s", url)
	}
	return doc, nil
}

// ListAthleteIDs walks the paginated sailor listing and returns every
// athlete id linked from it, in page order without duplicates.
func (c *PWAClient) ListAthleteIDs(ctx context.Context) ([]string, error) {
	first := c.baseURL + "/" + pwaSailorPage
	doc, err := c.document(ctx, first)
	if err != nil {
		return nil, err
	}

	pages := []string{first}
	doc.Find("div.page-browser a.page").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		url := c.baseURL + "/" + strings.TrimLeft(href, "/")
		for _, p := range pages {
			if p == url {
				return
			}
		}
		pages = append(pages, url)
	})

	seen := make(map[string]bool)
	var ids []string
	collect := func(doc *goquery.Document) {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			m := showUIDPattern.FindStringSubmatch(href)
			if m == nil || seen[m[1]] {
				return
			}
			seen[m[1]] = true
			ids = append(ids, m[1])
		})
	}

	collect(doc)
	for _, page := range pages[1:] {
		pageDoc, err := c.document(ctx, page)
		if err != nil {
			return nil, err
		}
		collect(pageDoc)
	}

	c.log.Info("listed athlete ids",
		zap.Int("pages", len(pages)),
		zap.Int("athletes", len(ids)),
	)
	return ids, nil
}

// ProfileURL returns the canonical profile page URL for an athlete id.
func (c *PWAClient) ProfileURL(id string) string {
	return fmt.Sprintf("%s/%s&tx_pwasailor_pi1%%5BshowUid%%5D=%s&cHash=%s",
		c.baseURL, pwaSailorPage, id, pwaProfileHash)
}

// Athlete scrapes a single profile page.
func (c *PWAClient) Athlete(ctx context.Context, id string) (model.RawRecord, error) {
	url := c.ProfileURL(id)
	doc, err := c.document(ctx, url)
	if err != nil {
		return model.RawRecord{}, err
	}

	rec := model.RawRecord{
		Source:     model.SourcePWA,
		SourceID:   id,
		ProfileURL: url,
	}
	rec.Name = parsePWAName(doc)
	rec.SailNumber = parsePWASailNumber(doc)
	rec.Nationality, rec.YearOfBirth = parsePWABaseInfo(doc)
	return rec, nil
}

// Athletes scrapes all the given profile ids, skipping pages that fail to
// load after retries.
func (c *PWAClient) Athletes(ctx context.Context, ids []string) ([]model.RawRecord, error) {
	records := make([]model.RawRecord, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return records, eris.Wrap(err, "pwa: athletes cancelled")
		}
		rec, err := c.Athlete(ctx, id)
		if err != nil {
			c.log.Warn("skipping athlete profile",
				zap.String("athlete_id", id),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}
	c.log.Info("scraped athlete profiles",
		zap.Int("requested", len(ids)),
		zap.Int("scraped", len(records)),
	)
	return records, nil
}

// EventDivisions returns the wave division labels and discipline codes
// published on an event's results page.
func (c *PWAClient) EventDivisions(ctx context.Context, eventID string) (map[string]string, error) {
	url := c.baseURL + "/" + fmt.Sprintf(pwaResultsPage, eventID)
	doc, err := c.document(ctx, url)
	if err != nil {
		return nil, err
	}

	divisions := make(map[string]string)
	scope := doc.Find("ul").First()
	if scope.Length() == 0 {
		scope = doc.Selection
	}
	scope.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Text())
		if !strings.Contains(strings.ToLower(label), "wave") {
			return
		}
		href, _ := s.Attr("href")
		if m := disciplinePattern.FindStringSubmatch(href); m != nil {
			divisions[label] = m[1]
		}
	})
	return divisions, nil
}

// DivisionResults scrapes the final results table for one division.
func (c *PWAClient) DivisionResults(ctx context.Context, eventID, label, code string) ([]model.ResultRow, error) {
	url := c.baseURL + "/" + fmt.Sprintf(pwaDivisionPage, eventID, code)
	doc, err := c.document(ctx, url)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		c.log.Warn("no results table",
			zap.String("event_id", eventID),
			zap.String("division", label),
		)
		return nil, nil
	}

	var rows []model.ResultRow
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return // header
		}
		cols := tr.Find("td")
		if cols.Length() < 3 {
			return
		}

		place, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(cols.Eq(0).Text()), "."))
		if err != nil {
			return
		}

		nameCell := cols.Eq(1)
		name := strings.TrimSpace(nameCell.Text())
		athleteID := ""
		if rank := nameCell.Find("div.rank-name"); rank.Length() > 0 {
			name = strings.TrimSpace(rank.Text())
			if href, ok := rank.Find("a[href]").Attr("href"); ok {
				if m := showUIDPattern.FindStringSubmatch(href); m != nil {
					athleteID = m[1]
				}
			}
		}

		rows = append(rows, model.ResultRow{
			Source:          model.SourcePWA,
			EventID:         eventID,
			Division:        label,
			Placement:       place,
			SourceAthleteID: athleteID,
			AthleteName:     name,
			SailNumber:      strings.TrimSpace(cols.Eq(2).Text()),
		})
	})
	return rows, nil
}

// EventResults scrapes every wave division of an event.
func (c *PWAClient) EventResults(ctx context.Context, eventID string) ([]model.ResultRow, error) {
	divisions, err := c.EventDivisions(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var all []model.ResultRow
	for label, code := range divisions {
		rows, err := c.DivisionResults(ctx, eventID, label, code)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	c.log.Info("scraped event results",
		zap.String("event_id", eventID),
		zap.Int("divisions", len(divisions)),
		zap.Int("rows", len(all)),
	)
	return all, nil
}

func parsePWAName(doc *goquery.Document) string {
	if h2 := doc.Find(".sailor-details-info-top h2").First(); h2.Length() > 0 {
		return strings.Join(strings.Fields(h2.Text()), " ")
	}
	if h2 := doc.Find("h2").First(); h2.Length() > 0 {
		return strings.Join(strings.Fields(h2.Text()), " ")
	}
	return ""
}

func parsePWASailNumber(doc *goquery.Document) string {
	for _, sel := range []string{".sail-no", ".sailor-number", ".athlete-number"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return strings.TrimSpace(s.Text())
		}
	}
	if m := sailNoPattern.FindStringSubmatch(doc.Text()); m != nil {
		return m[1]
	}
	return ""
}

func parsePWABaseInfo(doc *goquery.Document) (nationality string, yearOfBirth int) {
	for _, sel := range []string{".sailor-details-info-base", ".athlete-info", ".bio-info"} {
		base := doc.Find(sel).First()
		if base.Length() == 0 {
			continue
		}
		text := base.Text()
		if m := agePattern.FindStringSubmatch(text); m != nil {
			if age, err := strconv.Atoi(m[1]); err == nil {
				yearOfBirth = time.Now().Year() - age
			}
		}
		if m := nationalityPattern.FindStringSubmatch(text); m != nil {
			nationality = strings.TrimSpace(m[1])
		}
		return nationality, yearOfBirth
	}
	return "", 0
}
