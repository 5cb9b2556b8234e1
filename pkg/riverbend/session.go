package riverbend

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// relationBuilder is the single capability a StreamReader needs from its
// session: construct a relation from an assembled source description.
type relationBuilder interface {
	BuildRelation(ctx context.Context, desc SourceDescription) (*Relation, error)
}

// Session is a registered query-execution session on the session service.
//
// A session owns all engine-side resources; the SDK holds none. Sessions are
// not closed explicitly by this SDK — the engine expires them when heartbeats
// stop (see the keepalive package).
type Session struct {
	client *Client
	id     string
}

// NewSession registers a fresh session with the session service and returns
// a handle bound to it. The session id is generated client-side.
func NewSession(ctx context.Context, client *Client) (*Session, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	id := uuid.NewString()
	if err := client.CreateSession(ctx, id); err != nil {
		return nil, err
	}
	return &Session{client: client, id: id}, nil
}

// AttachSession binds a handle to an already-registered session id, for
// callers that share one session across processes.
func AttachSession(client *Client, sessionID string) (*Session, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	return &Session{client: client, id: sessionID}, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// ReadStream returns a new stream-source description builder bound to this
// session.
func (s *Session) ReadStream() *StreamReader {
	return newStreamReader(s)
}

// BuildRelation submits a source description and wraps the returned handle.
func (s *Session) BuildRelation(ctx context.Context, desc SourceDescription) (*Relation, error) {
	h, err := s.client.CreateRelation(ctx, s.id, desc)
	if err != nil {
		return nil, err
	}
	return &Relation{session: s, id: h.RelationID, columns: h.Columns}, nil
}
