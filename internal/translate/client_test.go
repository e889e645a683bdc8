package translate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	provider "github.com/tobfel/glossia/pkg/provider/translate"
	"github.com/tobfel/glossia/pkg/provider/translate/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Translate(t *testing.T) {
	p := &mock.Provider{TranslateResponse: "hallo zusammen"}
	c := NewClient(p, testLogger())

	got, err := c.Translate(context.Background(), "en", "de", "hello everyone")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hallo zusammen" {
		t.Errorf("Translate = %q", got)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(calls))
	}
	req := calls[0].Req
	if req.Text != "hello everyone" || req.SourceLang != "en" || req.TargetLang != "de" {
		t.Errorf("request = %+v", req)
	}
}

func TestClient_MinLengthGate(t *testing.T) {
	p := &mock.Provider{TranslateResponse: "should not be used"}
	c := NewClient(p, testLogger(), WithMinLength(3))

	got, err := c.Translate(context.Background(), "en", "de", "ok")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "ok" {
		t.Errorf("short text = %q, want returned unchanged", got)
	}
	if p.CallCount() != 0 {
		t.Errorf("provider called %d times for a short text, want 0", p.CallCount())
	}
}

func TestClient_RetriesThenSucceeds(t *testing.T) {
	boom := errors.New("upstream 500")
	var attempts int
	p := &mock.Provider{TranslateFunc: func(req provider.Request) (string, error) {
		attempts++
		if attempts < 3 {
			return "", boom
		}
		return "hallo", nil
	}}
	c := NewClient(p, testLogger(), WithRetries(2), WithBackoff(5*time.Millisecond))

	got, err := c.Translate(context.Background(), "en", "de", "hello")
	if err != nil {
		t.Fatalf("Translate after retries: %v", err)
	}
	if got != "hallo" || attempts != 3 {
		t.Errorf("got %q after %d attempts", got, attempts)
	}
}

func TestClient_RetriesExhausted(t *testing.T) {
	boom := errors.New("upstream 500")
	p := &mock.Provider{TranslateErr: boom}
	c := NewClient(p, testLogger(), WithRetries(2), WithBackoff(time.Millisecond))

	_, err := c.Translate(context.Background(), "en", "de", "hello")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped upstream error", err)
	}
	if got := p.CallCount(); got != 3 {
		t.Errorf("provider called %d times, want 3 (initial + 2 retries)", got)
	}
}

func TestClient_ContextCancelStopsRetrying(t *testing.T) {
	p := &mock.Provider{TranslateErr: errors.New("down")}
	c := NewClient(p, testLogger(), WithRetries(5), WithBackoff(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Translate(ctx, "en", "de", "hello")
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if got := p.CallCount(); got != 1 {
		t.Errorf("provider called %d times, want 1 before the backoff was cut short", got)
	}
}

func TestClient_Probe(t *testing.T) {
	p := &mock.Provider{}
	c := NewClient(p, testLogger())

	if err := c.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if p.ProbeCalls != 1 {
		t.Errorf("ProbeCalls = %d, want 1", p.ProbeCalls)
	}

	p.ProbeErr = errors.New("no connectivity")
	if err := c.Probe(context.Background()); err == nil {
		t.Error("Probe did not surface the provider error")
	}
}
