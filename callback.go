// Publish start/stop webhook, grounded on the teacher's rtmp_callback.go
// (SendStartCallback/SendStopCallback), standardized on the jwt/v5 import
// the teacher's own go.mod declares rather than the unversioned import the
// teacher file actually used.

package main

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const callbackJWTExpirySeconds = 120

// sendPublishCallback POSTs a signed event notification to Config.CallbackURL
// and returns whether the remote accepted it. A session that fails its start
// callback is rejected by the caller; a failed stop callback is logged only,
// since the stream has already ended.
func sendPublishCallback(session *Session, event string) bool {
	cfg := session.server.Config
	if cfg.CallbackURL == "" {
		return true
	}

	LogDebugSession(session.ID, session.RemoteAddr, "POST "+cfg.CallbackURL+" | Event: "+event+" | App: "+session.Application)

	claims := jwt.MapClaims{
		"sub":       "rtmp_event",
		"event":     event,
		"app":       session.Application,
		"key":       session.StreamKey,
		"client_ip": session.RemoteAddr,
		"exp":       time.Now().Add(callbackJWTExpirySeconds * time.Second).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.CallbackSecret))
	if err != nil {
		LogError(err)
		return false
	}

	req, err := http.NewRequest(http.MethodPost, cfg.CallbackURL, nil)
	if err != nil {
		LogError(err)
		return false
	}
	req.Header.Set("rtmp-event", signed)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		LogError(err)
		return false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		LogDebugSession(session.ID, session.RemoteAddr, "callback request ended with an unexpected status code")
		return false
	}

	return true
}
