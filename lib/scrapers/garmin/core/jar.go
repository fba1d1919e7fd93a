package core

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"
)

// sessionJar is a cookiejar that also remembers the last cookie of every
// name it was handed, whatever host or path it was scoped to.
type sessionJar struct {
	*cookiejar.Jar

	mu       sync.Mutex
	received map[string]*http.Cookie
}

func newSessionJar() (*sessionJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &sessionJar{
		Jar:      jar,
		received: map[string]*http.Cookie{},
	}, nil
}

func cookieExpired(cookie *http.Cookie, now time.Time) bool {
	if cookie.MaxAge < 0 {
		return true
	}
	return !cookie.Expires.IsZero() && cookie.Expires.Before(now)
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.Jar.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	for _, cookie := range cookies {
		if cookieExpired(cookie, now) {
			delete(j.received, cookie.Name)
			continue
		}
		j.received[cookie.Name] = cookie
	}
}

// Find returns the value of the named cookie regardless of the url it
// would be sent to.
func (j *sessionJar) Find(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	cookie, ok := j.received[name]
	if !ok || cookieExpired(cookie, time.Now()) {
		return "", false
	}
	return cookie.Value, true
}
