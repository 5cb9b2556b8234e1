package riverbend

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the Riverbend session-service endpoints
// used by this SDK.
//
// Note: This is intentionally minimal to support local harness + smoke tests.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// NewClient constructs a client for the session-service base URL.
//
// sessionServiceURL should look like "https://<stack>.riverbend.dev/api".
//
// defaultCAPath is optional and, when provided, will be used as the trust
// store for TLS.
func NewClient(sessionServiceURL, token, defaultCAPath string) (*Client, error) {
	base, err := parseBaseURL(sessionServiceURL, "session service")
	if err != nil {
		return nil, err
	}

	hc, err := newHTTPClient(defaultCAPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(token),
		http:    hc,
	}, nil
}

func parseBaseURL(raw string, name string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%s base URL is required", name)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s base URL: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s base URL must include a host (got %q)", name, raw)
	}
	// Ensure the base path ends with a slash so ResolveReference treats it as a directory.
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func newHTTPClient(defaultCAPath string) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if strings.TrimSpace(defaultCAPath) != "" {
		b, err := os.ReadFile(strings.TrimSpace(defaultCAPath))
		if err != nil {
			return nil, fmt.Errorf("read DEFAULT_CA_PATH file: %w", err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(b); !ok {
			return nil, fmt.Errorf("parse DEFAULT_CA_PATH PEM: no certs found")
		}
		tr.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}
	return &http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

// SourceDescription is the wire form of an assembled stream-source
// description, submitted as-is to the session service.
//
// Format and Schema are omitted when unset so the engine applies its own
// defaults; the client never substitutes one.
type SourceDescription struct {
	Format    string            `json:"format,omitempty"`
	Schema    string            `json:"schema,omitempty"`
	Options   map[string]string `json:"options"`
	Paths     []string          `json:"paths"`
	Streaming bool              `json:"streaming"`
}

// RelationHandle is the session service's reference to a constructed relation.
type RelationHandle struct {
	RelationID string   `json:"relationId"`
	Columns    []string `json:"columns"`
}

type createSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// CreateSession registers a session id with the session service.
func (c *Client) CreateSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	body, err := json.Marshal(createSessionRequest{SessionID: sessionID})
	if err != nil {
		return err
	}
	_, err = c.post(ctx, "createSession", "v1/sessions", body)
	return err
}

// Heartbeat extends the session lease on the session service.
func (c *Client) Heartbeat(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	p := fmt.Sprintf("v1/sessions/%s/heartbeat", url.PathEscape(sessionID))
	_, err := c.post(ctx, "heartbeat", p, nil)
	return err
}

// CreateRelation submits a source description and returns the handle of the
// constructed relation.
func (c *Client) CreateRelation(ctx context.Context, sessionID string, desc SourceDescription) (RelationHandle, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return RelationHandle{}, fmt.Errorf("session id is required")
	}
	body, err := json.Marshal(desc)
	if err != nil {
		return RelationHandle{}, err
	}

	p := fmt.Sprintf("v1/sessions/%s/relations", url.PathEscape(sessionID))
	rb, err := c.post(ctx, "createRelation", p, body)
	if err != nil {
		return RelationHandle{}, err
	}

	var out RelationHandle
	if err := json.Unmarshal(rb, &out); err != nil {
		return RelationHandle{}, fmt.Errorf("parse create relation response: %w", err)
	}
	return out, nil
}

type projectRequest struct {
	Columns []string `json:"columns"`
}

// ProjectRelation narrows a relation to the given columns and returns the
// handle of the projected relation.
func (c *Client) ProjectRelation(ctx context.Context, sessionID, relationID string, columns []string) (RelationHandle, error) {
	body, err := json.Marshal(projectRequest{Columns: columns})
	if err != nil {
		return RelationHandle{}, err
	}

	p := fmt.Sprintf(
		"v1/sessions/%s/relations/%s/project",
		url.PathEscape(strings.TrimSpace(sessionID)),
		url.PathEscape(strings.TrimSpace(relationID)),
	)
	rb, err := c.post(ctx, "projectRelation", p, body)
	if err != nil {
		return RelationHandle{}, err
	}

	var out RelationHandle
	if err := json.Unmarshal(rb, &out); err != nil {
		return RelationHandle{}, fmt.Errorf("parse project relation response: %w", err)
	}
	return out, nil
}

// ReadRelationRecords reads the relation's current micro-batch of records.
//
// Note: this endpoint returns the full batch in this minimal client. Streams
// can be large; callers should treat this as best-effort.
func (c *Client) ReadRelationRecords(ctx context.Context, sessionID, relationID string) ([]map[string]any, error) {
	p := fmt.Sprintf(
		"v1/sessions/%s/relations/%s/records",
		url.PathEscape(strings.TrimSpace(sessionID)),
		url.PathEscape(strings.TrimSpace(relationID)),
	)

	u := c.resolve(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, newHTTPError("readRelationRecords", resp, rb)
	}

	recs, err := parseRecordsResponse(rb)
	if err != nil {
		return nil, fmt.Errorf("parse relation records response: %w", err)
	}
	return recs, nil
}

func parseRecordsResponse(body []byte) ([]map[string]any, error) {
	var top any
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, err
	}

	// Response shapes vary by engine version. Known patterns include:
	// - [ {..record..}, ... ]
	// - { "records": [ ... ] }
	// - { "values": [ ... ], "nextPageToken": "..." }
	//
	// We keep this permissive and best-effort.
	return extractRecordList(top)
}

func extractRecordList(v any) ([]map[string]any, error) {
	switch t := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				// Ignore non-object items.
				continue
			}
			out = append(out, m)
		}
		return out, nil
	case map[string]any:
		// Prefer well-known paging keys.
		for _, key := range []string{"records", "values", "data", "items", "result"} {
			if inner, ok := t[key]; ok {
				if recs, err := extractRecordList(inner); err == nil {
					return recs, nil
				}
			}
		}
		return nil, fmt.Errorf("unexpected json object shape")
	default:
		return nil, fmt.Errorf("unexpected json type %T", v)
	}
}

func (c *Client) post(ctx context.Context, op, relPath string, body []byte) ([]byte, error) {
	u := c.resolve(relPath)

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, newHTTPError(op, resp, rb)
	}
	return rb, nil
}

func (c *Client) resolve(relPath string) *url.URL {
	relPath = strings.TrimPrefix(relPath, "/")
	rel := &url.URL{Path: relPath}
	return c.baseURL.ResolveReference(rel)
}
