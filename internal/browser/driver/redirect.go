// internal/browser/driver/redirect.go
package driver

import "net/http"

// NextRedirect applies the method policy for a redirect response.
// ok is false when status is not a redirect the session follows.
//
//	303       -> GET without body, HEAD stays HEAD
//	301, 302  -> GET without body when the original was POST, otherwise unchanged
//	307, 308  -> method and body preserved
func NextRedirect(method string, status int) (newMethod string, dropBody bool, ok bool) {
	switch status {
	case http.StatusSeeOther:
		if method == http.MethodHead {
			return http.MethodHead, true, true
		}
		return http.MethodGet, true, true
	case http.StatusMovedPermanently, http.StatusFound:
		if method == http.MethodPost {
			return http.MethodGet, true, true
		}
		return method, false, true
	case http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return method, false, true
	}
	return method, false, false
}
