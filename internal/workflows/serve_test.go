package workflows

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestServe(t *testing.T) {
	te := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ServeOptions{
			Common: te.common,
			Addr:   "127.0.0.1:0",
			Watch:  true,
			Ready:  func(addr string) { ready <- addr },
		})
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("Serve() exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	resp, err := http.Post("http://"+addr+"/ping", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /ping error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST /ping status = %d", resp.StatusCode)
	}

	resp, err = http.Get("http://" + addr + "/status")
	if err != nil {
		t.Fatalf("GET /status error = %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if body["status"] != "SAFE" {
		t.Errorf("GET /status = %v, want SAFE", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error after cancel = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Serve() did not shut down")
	}
}
