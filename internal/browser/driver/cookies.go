// internal/browser/driver/cookies.go
package driver

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

func newJar() *cookiejar.Jar {
	// cookiejar.New only fails on invalid options.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// cookieStore keeps the attributes of every cookie a session has been sent.
// The jar decides what goes out on a request; the store answers ResponseCookies.
type cookieStore struct {
	entries map[string]Cookie
	now     func() time.Time
}

func newCookieStore() *cookieStore {
	return &cookieStore{entries: map[string]Cookie{}, now: time.Now}
}

func cookieKey(domain, path, name string) string {
	return domain + ";" + path + ";" + name
}

func (s *cookieStore) update(u *url.URL, cookies []*http.Cookie) {
	now := s.now()
	for _, hc := range cookies {
		c := Cookie{
			Name:     hc.Name,
			Value:    hc.Value,
			Domain:   strings.TrimPrefix(hc.Domain, "."),
			Path:     hc.Path,
			Secure:   hc.Secure,
			HTTPOnly: hc.HttpOnly,
		}
		if c.Domain == "" {
			c.Domain = u.Hostname()
		}
		if c.Path == "" {
			c.Path = "/"
		}
		switch {
		case hc.MaxAge > 0:
			c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
		case !hc.Expires.IsZero():
			c.Expires = hc.Expires
		}

		key := cookieKey(c.Domain, c.Path, c.Name)
		if hc.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now)) {
			delete(s.entries, key)
			continue
		}
		s.entries[key] = c
	}
}

func (s *cookieStore) put(c Cookie) {
	s.entries[cookieKey(c.Domain, c.Path, c.Name)] = c
}

// list returns the live cookies ordered by domain, path and name.
func (s *cookieStore) list() []Cookie {
	now := s.now()
	out := make([]Cookie, 0, len(s.entries))
	for _, c := range s.entries {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return cookieKey(out[i].Domain, out[i].Path, out[i].Name) < cookieKey(out[j].Domain, out[j].Path, out[j].Name)
	})
	return out
}

// byName flattens the store into the name keyed map drivers expose.
// On name collisions the most specific path wins.
func (s *cookieStore) byName() map[string]Cookie {
	out := map[string]Cookie{}
	for _, c := range s.list() {
		if prev, ok := out[c.Name]; ok && len(prev.Path) > len(c.Path) {
			continue
		}
		out[c.Name] = c
	}
	return out
}

// seedJar writes cookies into jar so they are sent on matching requests.
func seedJar(jar http.CookieJar, cookies []Cookie) {
	for _, c := range cookies {
		scheme := "http"
		if c.Secure {
			scheme = "https"
		}
		u := &url.URL{Scheme: scheme, Host: c.Domain, Path: c.Path}
		jar.SetCookies(u, []*http.Cookie{{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}})
	}
}
