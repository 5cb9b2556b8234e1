package riverbend

import (
	"net/http"
	"strings"
	"testing"
)

func TestNewHTTPError_ParsesEnvelope(t *testing.T) {
	t.Parallel()

	resp := &http.Response{StatusCode: 400, Status: "400 Bad Request"}
	body := []byte(`{"errorCode":"INVALID_ARGUMENT","errorName":"Riverbend:UnknownSourceFormat","errorInstanceId":"abc-123"}`)

	err := newHTTPError("createRelation", resp, body)
	he, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if he.ErrorName != "Riverbend:UnknownSourceFormat" || he.ErrorCode != "INVALID_ARGUMENT" || he.ErrorInstanceID != "abc-123" {
		t.Fatalf("unexpected fields: %#v", he)
	}
	if he.Snippet != "" {
		t.Fatalf("envelope responses must not carry a body snippet, got %q", he.Snippet)
	}
	msg := he.Error()
	for _, want := range []string{"op=createRelation", "errorName=Riverbend:UnknownSourceFormat", "errorCode=INVALID_ARGUMENT"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestNewHTTPError_NonEnvelopeBodyIsRedactedAndTruncated(t *testing.T) {
	t.Parallel()

	resp := &http.Response{StatusCode: 502, Status: "502 Bad Gateway"}
	body := []byte("upstream failed: Authorization: Bearer tok-secret-value\n" + strings.Repeat("x", 500))

	err := newHTTPError("heartbeat", resp, body)
	he, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if strings.Contains(he.Snippet, "tok-secret-value") {
		t.Fatalf("snippet leaked token: %q", he.Snippet)
	}
	if !strings.HasSuffix(he.Snippet, "...") {
		t.Fatalf("long body should be truncated with ellipsis, got %q", he.Snippet)
	}
}
