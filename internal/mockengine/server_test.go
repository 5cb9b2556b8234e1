package mockengine_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/riverbend-io/riverbend-client-go/internal/mockengine"
	"github.com/riverbend-io/riverbend-client-go/pkg/riverbend"
)

func newClient(t *testing.T, ts *httptest.Server, token string) *riverbend.Client {
	t.Helper()
	client, err := riverbend.NewClient(ts.URL+"/api", token, "")
	if err != nil {
		t.Fatalf("new riverbend client: %v", err)
	}
	return client
}

func TestMockEngine_SessionLifecycle(t *testing.T) {
	t.Parallel()

	srv := mockengine.New("")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := newClient(t, ts, "dummy-token")
	ctx := context.Background()

	if err := client.CreateSession(ctx, "sess-1"); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := client.Heartbeat(ctx, "sess-1"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	err := client.Heartbeat(ctx, "sess-unknown")
	var he *riverbend.HTTPError
	if !errors.As(err, &he) || he.ErrorName != "Riverbend:SessionNotFound" {
		t.Fatalf("expected SessionNotFound for unknown session, got %v", err)
	}
}

func TestMockEngine_RecordsSubmittedDescriptions(t *testing.T) {
	t.Parallel()

	srv := mockengine.New("")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := newClient(t, ts, "dummy-token")
	ctx := context.Background()

	if err := client.CreateSession(ctx, "sess-1"); err != nil {
		t.Fatalf("create session: %v", err)
	}

	desc := riverbend.SourceDescription{
		Format:    "json",
		Schema:    "id BIGINT, payload STRING",
		Options:   map[string]string{"maxFilesPerTrigger": "5"},
		Paths:     []string{"/data/events"},
		Streaming: true,
	}
	if _, err := client.CreateRelation(ctx, "sess-1", desc); err != nil {
		t.Fatalf("create relation: %v", err)
	}

	got, ok := srv.LastDescription()
	if !ok {
		t.Fatal("no description recorded")
	}
	if got.SessionID != "sess-1" || got.Format != "json" || got.Schema != desc.Schema {
		t.Fatalf("unexpected description: %#v", got)
	}
	if !got.Streaming {
		t.Fatal("expected streaming flag recorded")
	}
	if got.Options["maxFilesPerTrigger"] != "5" {
		t.Fatalf("unexpected options: %#v", got.Options)
	}
	if len(got.Paths) != 1 || got.Paths[0] != "/data/events" {
		t.Fatalf("unexpected paths: %#v", got.Paths)
	}
}

func TestMockEngine_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	srv := mockengine.New("")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := newClient(t, ts, "dummy-token")
	ctx := context.Background()

	if err := client.CreateSession(ctx, "sess-1"); err != nil {
		t.Fatalf("create session: %v", err)
	}

	_, err := client.CreateRelation(ctx, "sess-1", riverbend.SourceDescription{
		Format:    "bogus",
		Options:   map[string]string{},
		Streaming: true,
	})
	var he *riverbend.HTTPError
	if !errors.As(err, &he) || he.ErrorName != "Riverbend:UnknownSourceFormat" {
		t.Fatalf("expected UnknownSourceFormat, got %v", err)
	}
}

func TestMockEngine_ProjectionAndRecords(t *testing.T) {
	t.Parallel()

	srv := mockengine.New("")
	srv.AddSource("/data/events", []string{"id", "value"}, []map[string]any{
		{"id": float64(1), "value": "a"},
		{"id": float64(2), "value": "b"},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := newClient(t, ts, "dummy-token")
	ctx := context.Background()

	if err := client.CreateSession(ctx, "sess-1"); err != nil {
		t.Fatalf("create session: %v", err)
	}

	rel, err := client.CreateRelation(ctx, "sess-1", riverbend.SourceDescription{
		Format:    "json",
		Options:   map[string]string{},
		Paths:     []string{"/data/events"},
		Streaming: true,
	})
	if err != nil {
		t.Fatalf("create relation: %v", err)
	}
	if len(rel.Columns) != 2 {
		t.Fatalf("unexpected columns: %#v", rel.Columns)
	}

	proj, err := client.ProjectRelation(ctx, "sess-1", rel.RelationID, []string{"value"})
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	recs, err := client.ReadRelationRecords(ctx, "sess-1", proj.RelationID)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(recs) != 2 || recs[0]["value"] != "a" || recs[1]["value"] != "b" {
		t.Fatalf("unexpected records: %#v", recs)
	}
	if _, ok := recs[0]["id"]; ok {
		t.Fatalf("projection leaked column id: %#v", recs[0])
	}

	_, err = client.ProjectRelation(ctx, "sess-1", rel.RelationID, []string{"nope"})
	var he *riverbend.HTTPError
	if !errors.As(err, &he) || he.ErrorName != "Riverbend:UnknownColumn" {
		t.Fatalf("expected UnknownColumn, got %v", err)
	}
}

func TestMockEngine_EnforcesBearerToken(t *testing.T) {
	t.Parallel()

	srv := mockengine.New("")
	srv.RequireBearerToken("the-token")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx := context.Background()

	bad := newClient(t, ts, "wrong-token")
	err := bad.CreateSession(ctx, "sess-1")
	var he *riverbend.HTTPError
	if !errors.As(err, &he) || he.StatusCode != 401 {
		t.Fatalf("expected 401 for wrong token, got %v", err)
	}

	good := newClient(t, ts, "the-token")
	if err := good.CreateSession(ctx, "sess-1"); err != nil {
		t.Fatalf("create session with valid token: %v", err)
	}
}
