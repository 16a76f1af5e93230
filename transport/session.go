package transport

import (
	"fmt"
	"strings"
	"time"

	"github.com/LdDl/balltrack/media"
	"github.com/LdDl/balltrack/signaling"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	sessionAttr     = "a=session:"
	candidateScheme = "ws://"
	// DataChannelLabel names the data channel advertised in session descriptions
	DataChannelLabel = "computation"
)

var (
	// ErrNoSession is returned when an operation needs the remote description first
	ErrNoSession = errors.New("remote session description is not set")
	// ErrSessionMismatch is returned when descriptions refer to different sessions
	ErrSessionMismatch = errors.New("session id mismatch")
)

func sessionSDP(sessionID uuid.UUID) string {
	lines := []string{
		"v=0",
		fmt.Sprintf("o=- %d 1 IN IP4 0.0.0.0", time.Now().Unix()),
		"s=balltrack",
		sessionAttr + sessionID.String(),
		fmt.Sprintf("m=video bgr24/%d", media.VideoClockRate),
		"m=application " + DataChannelLabel,
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

// ParseSessionID extracts session identifier from a session description
func ParseSessionID(sdp string) (uuid.UUID, error) {
	for _, line := range strings.Split(sdp, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, sessionAttr) {
			continue
		}
		id, err := uuid.Parse(strings.TrimPrefix(line, sessionAttr))
		if err != nil {
			return uuid.Nil, errors.Wrap(err, "Can't parse session id")
		}
		return id, nil
	}
	return uuid.Nil, errors.New("session description has no session id")
}

func sessionFrom(desc signaling.SessionDescription, want signaling.SDPType) (uuid.UUID, error) {
	if desc.Type != want {
		return uuid.Nil, errors.Errorf("expected %s, got %s", want, desc.Type)
	}
	return ParseSessionID(desc.SDP)
}
