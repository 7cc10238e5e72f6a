package auth

import (
	"context"
	"net/http"
	"sync"
	"testing"
)

func startCallback(t *testing.T, m *Manager) (*CallbackServer, string) {
	t.Helper()
	cs := NewCallbackServer(m)
	base, err := cs.Start(0)
	if err != nil {
		t.Fatalf("start callback server: %v", err)
	}
	t.Cleanup(func() { cs.Shutdown(context.Background()) })
	return cs, base
}

func TestCallback_ProcessesTokenExactlyOnce(t *testing.T) {
	f := newAuthFixture(t)
	cs, base := startCallback(t, f.m)
	url := base + "/?token=" + futureToken(t)

	for i := 0; i < 2; i++ {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("callback request %d: %v", i+1, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("callback request %d: status %d", i+1, resp.StatusCode)
		}
	}

	if got := f.b.calls(); got != 1 {
		t.Errorf("verification ran %d times, want exactly 1", got)
	}
	assertAuthed(t, f.m, true)

	select {
	case err := <-cs.Done():
		if err != nil {
			t.Errorf("callback outcome: %v", err)
		}
	default:
		t.Error("no outcome delivered")
	}
}

func TestCallback_ConcurrentRedirects(t *testing.T) {
	f := newAuthFixture(t)
	_, base := startCallback(t, f.m)
	url := base + "/?token=" + futureToken(t)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			resp, err := http.Get(url)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := f.b.calls(); got != 1 {
		t.Errorf("verification ran %d times, want exactly 1", got)
	}
	assertAuthed(t, f.m, true)
}

func TestCallback_MissingTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	cs, base := startCallback(t, f.m)

	resp, err := http.Get(base + "/")
	if err != nil {
		t.Fatalf("callback request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if got := f.b.calls(); got != 0 {
		t.Errorf("tokenless request triggered %d verifications", got)
	}
	select {
	case err := <-cs.Done():
		t.Errorf("unexpected outcome delivered: %v", err)
	default:
	}
}

func TestCallback_FailedVerificationReportsError(t *testing.T) {
	f := newAuthFixture(t)
	f.b.setDeny(true)
	cs, base := startCallback(t, f.m)

	resp, err := http.Get(base + "/?token=" + futureToken(t))
	if err != nil {
		t.Fatalf("callback request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	assertAuthed(t, f.m, false)

	select {
	case err := <-cs.Done():
		if err == nil {
			t.Error("outcome = nil, want verification error")
		}
	default:
		t.Error("no outcome delivered")
	}
}
