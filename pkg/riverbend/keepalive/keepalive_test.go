package keepalive_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riverbend-io/riverbend-client-go/internal/mockengine"
	"github.com/riverbend-io/riverbend-client-go/pkg/riverbend"
	"github.com/riverbend-io/riverbend-client-go/pkg/riverbend/keepalive"
)

func TestRunLoop_HeartbeatsUntilCancelled(t *testing.T) {
	t.Parallel()

	srv := mockengine.New("")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client, err := riverbend.NewClient(ts.URL+"/api", "dummy-token", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.CreateSession(context.Background(), "sess-1"); err != nil {
		t.Fatalf("create session: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- keepalive.RunLoop(ctx, client, "sess-1", keepalive.Options{Interval: 5 * time.Millisecond})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if countHeartbeats(srv) >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for loop to stop")
	}

	if got := countHeartbeats(srv); got < 2 {
		t.Fatalf("expected at least 2 heartbeats, got %d", got)
	}
}

func countHeartbeats(srv *mockengine.Server) int {
	n := 0
	for _, c := range srv.Calls() {
		if c.Method == "POST" && c.Path == "/api/v1/sessions/sess-1/heartbeat" {
			n++
		}
	}
	return n
}
