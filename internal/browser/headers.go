// internal/browser/headers.go
package browser

import (
	"encoding/base64"
)

// AppendRequestHeader adds a header sent with every following request.
// Drivers that cannot send a name twice return driver.HeaderConflictError.
func (b *Browser) AppendRequestHeader(name, value string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	return b.driver.AppendRequestHeader(name, value)
}

// ClearRequestHeader stops sending a permanent header.
func (b *Browser) ClearRequestHeader(name string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	b.driver.ClearRequestHeader(name)
	return nil
}

// Login authenticates following requests with HTTP basic auth, replacing
// earlier credentials.
func (b *Browser) Login(user, password string) error {
	if err := b.Logout(); err != nil {
		return err
	}
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	return b.AppendRequestHeader("Authorization", "Basic "+token)
}

// Logout drops basic auth credentials.
func (b *Browser) Logout() error {
	return b.ClearRequestHeader("Authorization")
}
