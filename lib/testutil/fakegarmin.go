package testutil

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	FakeUsername   = "runner@example.com"
	FakePassword   = "hunter2"
	FakeWebhost    = "https://connect.example.com"
	FakeTicket     = "TGT-abc123"
	sessionCookie  = "SESSIONID"
	sessionValue   = "session-ok"
	fakeGPXPayload = `<?xml version="1.0" encoding="UTF-8"?><gpx version="1.1" creator="fake"><trk><name>%s</name><trkseg><trkpt lat="46.5" lon="6.6"><ele>372</ele></trkpt></trkseg></trk></gpx>`
)

type FakeActivity struct {
	ID       string
	Name     string
	HasTrack bool
}

// FakeGarmin is an in-process stand-in for the garmin connect and sso hosts.
// Fields may be changed before the first request is made.
type FakeGarmin struct {
	Server *httptest.Server

	// when false the hostname endpoint answers without a host field
	ServeHost bool
	// when false a correct login still sets no ticket cookie
	IssueTicket bool
	// path the ticket cookie is scoped to
	TicketPath string
	// every listing request past the last page repeats the last page
	Pages      [][]string
	Activities map[string]FakeActivity
	// ids whose metadata endpoint answers 500
	BrokenData map[string]bool

	mu         sync.Mutex
	page       int
	hits       map[string]int
	userAgents []string
}

func NewFakeGarmin(t testing.TB) *FakeGarmin {
	f := &FakeGarmin{
		ServeHost:   true,
		IssueTicket: true,
		TicketPath:  "/sso",
		Activities:  map[string]FakeActivity{},
		BrokenData:  map[string]bool{},
		hits:        map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/gauth/hostname", f.hostname)
	mux.HandleFunc("/sso/login", f.login)
	mux.HandleFunc("/post-auth/login", f.postAuth)
	mux.HandleFunc("/minactivities", f.authenticated(f.listing))
	mux.HandleFunc("/modern/proxy/activity-service/activity/", f.authenticated(f.activity))
	mux.HandleFunc("/modern/proxy/download-service/export/gpx/activity/", f.authenticated(f.gpx))

	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// AddActivities registers activities and lays them out in pages of perPage.
func (f *FakeGarmin) AddActivities(perPage int, activities ...FakeActivity) {
	var page []string
	for _, a := range activities {
		f.Activities[a.ID] = a
		page = append(page, a.ID)
		if len(page) == perPage {
			f.Pages = append(f.Pages, page)
			page = nil
		}
	}
	if len(page) > 0 {
		f.Pages = append(f.Pages, page)
	}
}

func (f *FakeGarmin) ConnectURL() string {
	return f.Server.URL
}

func (f *FakeGarmin) SSOURL() string {
	return f.Server.URL + "/sso"
}

// Hits returns how many requests were made to paths starting with prefix.
func (f *FakeGarmin) Hits(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for path, n := range f.hits {
		if strings.HasPrefix(path, prefix) {
			total += n
		}
	}
	return total
}

func (f *FakeGarmin) UserAgents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.userAgents...)
}

func (f *FakeGarmin) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.userAgents = append(f.userAgents, r.UserAgent())
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeGarmin) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value != sessionValue {
			http.Error(w, "not logged in", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (f *FakeGarmin) hostname(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !f.ServeHost {
		fmt.Fprint(w, `{"hostname": "elsewhere"}`)
		return
	}
	fmt.Fprintf(w, `{"host": %q}`, FakeWebhost)
}

func (f *FakeGarmin) login(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("webhost") != FakeWebhost {
		http.Error(w, "unknown webhost", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet:
		http.SetCookie(w, &http.Cookie{Name: "CASTGCLOGIN", Value: "seed", Path: "/sso"})
		fmt.Fprint(w, "<html><form id=\"login-form\"></form></html>")
	case http.MethodPost:
		if _, err := r.Cookie("CASTGCLOGIN"); err != nil {
			http.Error(w, "login page was never loaded", http.StatusBadRequest)
			return
		}
		err := r.ParseForm()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ok := r.PostForm.Get("username") == FakeUsername &&
			r.PostForm.Get("password") == FakePassword &&
			r.PostForm.Get("_eventId") == "submit"
		if ok && f.IssueTicket {
			http.SetCookie(w, &http.Cookie{Name: "CASTGC", Value: FakeTicket, Path: f.TicketPath})
		}
		fmt.Fprint(w, "<html>done</html>")
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *FakeGarmin) postAuth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("ticket") != "ST-0"+strings.TrimPrefix(FakeTicket, "TGT-") {
		http.Error(w, "bad ticket", http.StatusUnauthorized)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: sessionValue, Path: "/"})
	fmt.Fprint(w, "<html>welcome</html>")
}

func (f *FakeGarmin) listing(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	switch r.Method {
	case http.MethodGet:
		f.page = 0
	case http.MethodPost:
		_ = r.ParseForm()
		if r.PostForm.Get("activitiesForm:pageScroller") == "fastforward" && f.page < len(f.Pages)-1 {
			f.page++
		}
	}
	var ids []string
	if f.page < len(f.Pages) {
		ids = f.Pages[f.page]
	}
	f.mu.Unlock()

	var out strings.Builder
	out.WriteString("<html><body><table>")
	for _, id := range ids {
		fmt.Fprintf(
			&out,
			`<tr><td><a class="activityNameLink" href="/modern/activity/%s">%s</a></td><td><a class="other" href="/modern/device/9">device</a></td></tr>`,
			id, html.EscapeString(f.Activities[id].Name),
		)
	}
	out.WriteString("</table></body></html>")
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, out.String())
}

func (f *FakeGarmin) activity(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/modern/proxy/activity-service/activity/")
	id, sub, _ := strings.Cut(rest, "/")
	activity, ok := f.Activities[id]
	if !ok {
		http.NotFound(w, r)
		return
	}

	var payload any
	switch sub {
	case "":
		if f.BrokenData[id] {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		payload = map[string]any{
			"activityId":   json.Number(id),
			"activityName": activity.Name,
			"distance":     5012.37,
			"summaryDTO": map[string]any{
				"duration":  1810.5,
				"averageHR": 151,
			},
		}
	case "splits":
		payload = map[string]any{
			"activityId": json.Number(id),
			"lapDTOs": []any{
				map[string]any{"lapIndex": 1, "distance": 1000.0},
				map[string]any{"lapIndex": 2, "distance": 1000.0},
			},
		}
	case "details":
		payload = map[string]any{
			"activityId":   json.Number(id),
			"metricsCount": 2,
			"activityDetailMetrics": []any{
				map[string]any{"metrics": []any{1.5, nil, 3}},
			},
		}
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func (f *FakeGarmin) gpx(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/modern/proxy/download-service/export/gpx/activity/")
	activity, ok := f.Activities[id]
	if !ok || !activity.HasTrack {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/gpx+xml")
	fmt.Fprintf(w, fakeGPXPayload, html.EscapeString(activity.Name))
}
