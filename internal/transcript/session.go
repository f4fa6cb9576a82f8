package transcript

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// SharedSession is the key used when the caller names no session; every such
// caller sees the same transcript.
const SharedSession = "user-session"

// ErrInvalidSession is returned for session ids that are not UUIDs.
var ErrInvalidSession = errors.New("session id must be a UUID")

// SessionKey maps a caller-supplied session id to a store key. An empty id
// selects SharedSession.
func SessionKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return SharedSession, nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidSession
	}
	return "session:" + parsed.String(), nil
}
