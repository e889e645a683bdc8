package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tobfel/glossia/pkg/provider/translate/mock"
)

func TestTranslatorChecker_Reachable(t *testing.T) {
	prov := &mock.Provider{}
	h := New(TranslatorChecker(prov))

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if prov.ProbeCalls == 0 {
		t.Error("checker did not probe the provider")
	}
}

func TestTranslatorChecker_Unreachable(t *testing.T) {
	prov := &mock.Provider{ProbeErr: errors.New("connection refused")}
	h := New(TranslatorChecker(prov))

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Checks["translator"] != "fail: connection refused" {
		t.Errorf("translator check = %q", body.Checks["translator"])
	}
}
