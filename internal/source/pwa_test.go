package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/fetcher"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

func newPWATestClient(srv *httptest.Server) *PWAClient {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})
	return NewPWAClient(f, srv.URL)
}

const profileHTML = `<html><body>
<div class="sailor-details-info-top"><h2>  Maciek   Warchol </h2></div>
<span class="sail-no">POL-111</span>
<div class="sailor-details-info-base">
Age: 30
Nationality: Poland
</div>
</body></html>`

func TestPWAAthlete_ParsesProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, profileHTML)
	}))
	defer srv.Close()

	c := newPWATestClient(srv)
	rec, err := c.Athlete(context.Background(), "791")
	require.NoError(t, err)

	assert.Equal(t, model.SourcePWA, rec.Source)
	assert.Equal(t, "791", rec.SourceID)
	assert.Equal(t, "Maciek Warchol", rec.Name)
	assert.Equal(t, "POL-111", rec.SailNumber)
	assert.Equal(t, "Poland", rec.Nationality)
	assert.Equal(t, time.Now().Year()-30, rec.YearOfBirth)
	assert.Contains(t, rec.ProfileURL, "showUid%5D=791")
}

func TestPWAAthlete_SailNumberRegexFallback(t *testing.T) {
	html := `<html><body>
<h2>Antoine Martin</h2>
<p>Riding under FRA-193 this season.</p>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, html)
	}))
	defer srv.Close()

	c := newPWATestClient(srv)
	rec, err := c.Athlete(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "Antoine Martin", rec.Name)
	assert.Equal(t, "FRA-193", rec.SailNumber)
	assert.Empty(t, rec.Nationality)
	assert.Zero(t, rec.YearOfBirth)
}

func TestPWAListAthleteIDs_Paginated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `<html><body>
<a href="index.php?id=7&tx_pwasailor_pi1%5BshowUid%5D=300&cHash=abc">C</a>
<a href="index.php?id=7&tx_pwasailor_pi1%5BshowUid%5D=100&cHash=abc">dup</a>
</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>
<div class="page-browser">
<a class="page" href="index.php?id=7&page=2">2</a>
</div>
<a href="index.php?id=7&tx_pwasailor_pi1%5BshowUid%5D=100&cHash=abc">A</a>
<a href="index.php?id=7&tx_pwasailor_pi1%5BshowUid%5D=200&cHash=abc">B</a>
<a href="index.php?id=5">unrelated</a>
</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newPWATestClient(srv)
	ids, err := c.ListAthleteIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200", "300"}, ids)
}

func TestPWAEventResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tx_pwaevent_pi1[eventDiscipline]") == "960" {
			fmt.Fprint(w, `<html><body><table>
<tr><th>Place</th><th>Name</th><th>Sail</th></tr>
<tr>
  <td>1.</td>
  <td><div class="rank-name"><a href="index.php?id=7&tx_pwasailor_pi1%5BshowUid%5D=791&cHash=x">Maciek Warchol</a></div></td>
  <td>POL-111</td>
</tr>
<tr>
  <td>2</td>
  <td>Pawel Sniady</td>
  <td>POL-1111</td>
</tr>
<tr><td>n/a</td><td>withdrawn</td><td></td></tr>
</table></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><ul>
<a href="index.php?id=193&tx_pwaevent_pi1%5BeventDiscipline%5D=960">Wave Men</a>
<a href="index.php?id=193&tx_pwaevent_pi1%5BeventDiscipline%5D=977">Slalom Men</a>
</ul></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newPWATestClient(srv)
	rows, err := c.EventResults(context.Background(), "1900")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, model.ResultRow{
		Source:          model.SourcePWA,
		EventID:         "1900",
		Division:        "Wave Men",
		Placement:       1,
		SourceAthleteID: "791",
		AthleteName:     "Maciek Warchol",
		SailNumber:      "POL-111",
	}, rows[0])

	assert.Equal(t, 2, rows[1].Placement)
	assert.Equal(t, "Pawel Sniady", rows[1].AthleteName)
	assert.Empty(t, rows[1].SourceAthleteID)
}

func TestPWAEventDivisions_NonWaveExcluded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><ul>
<a href="index.php?tx_pwaevent_pi1%5BeventDiscipline%5D=960">Wave Women</a>
<a href="index.php?tx_pwaevent_pi1%5BeventDiscipline%5D=961">Freestyle Men</a>
</ul></body></html>`)
	}))
	defer srv.Close()

	c := newPWATestClient(srv)
	divisions, err := c.EventDivisions(context.Background(), "1900")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Wave Women": "960"}, divisions)
}

func TestPWAAthletes_SkipsFailedProfiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tx_pwasailor_pi1[showUid]") == "13" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, profileHTML)
	}))
	defer srv.Close()

	c := newPWATestClient(srv)
	records, err := c.Athletes(context.Background(), []string{"791", "13"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "791", records[0].SourceID)
}
