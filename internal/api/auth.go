// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// StaticAuth is an Auth backed by a pre-obtained token. RefreshToken
// re-reads the token file when one was configured, so a rotated token is
// picked up without restarting; with no file there is nothing to refresh
// and the 401 becomes terminal.
type StaticAuth struct {
	kbGUID   string
	kbServer string
	userGUID string
	userName string

	mu        sync.Mutex
	token     string
	tokenFile string
}

// NewStaticAuth creates an Auth bound to one knowledge base. tokenFile may
// be empty.
func NewStaticAuth(kbGUID, kbServer, userGUID, userName, token, tokenFile string) (*StaticAuth, error) {
	if token == "" {
		return nil, errors.New("no API token configured")
	}
	if kbGUID == "" || kbServer == "" {
		return nil, errors.New("no knowledge base configured")
	}
	return &StaticAuth{
		kbGUID:    kbGUID,
		kbServer:  strings.TrimSuffix(kbServer, "/"),
		userGUID:  userGUID,
		userName:  userName,
		token:     token,
		tokenFile: tokenFile,
	}, nil
}

// Headers returns the auth headers attached to every request.
func (a *StaticAuth) Headers() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return map[string]string{"X-Wiz-Token": a.token}
}

// RefreshToken re-reads the token file.
func (a *StaticAuth) RefreshToken() error {
	if a.tokenFile == "" {
		return errors.New("static token expired and no token file to reload")
	}
	data, err := os.ReadFile(a.tokenFile)
	if err != nil {
		return fmt.Errorf("reloading token from %s: %w", a.tokenFile, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return fmt.Errorf("token file %s is empty", a.tokenFile)
	}

	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
	return nil
}

func (a *StaticAuth) KbGUID() string   { return a.kbGUID }
func (a *StaticAuth) KbServer() string { return a.kbServer }
func (a *StaticAuth) UserGUID() string { return a.userGUID }
func (a *StaticAuth) UserName() string { return a.userName }
