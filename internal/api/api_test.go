package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/telemetry"
	"github.com/shaiso/tensorgraph/internal/tuner"
	"github.com/shaiso/tensorgraph/internal/tuning"
)

type fakeTuner struct {
	passes   int
	err      error
	last     *tuner.Result
	overtake *tuner.Result
}

func (f *fakeTuner) PassResult(context.Context) *tuner.Result {
	f.passes++
	res := &tuner.Result{
		GraphID:  uuid.New(),
		Nodes:    3,
		Started:  time.Now(),
		Duration: 5 * time.Millisecond,
		Err:      f.err,
	}
	f.last = res
	if f.overtake != nil {
		// Плановый проход завершился сразу после этого.
		f.last = f.overtake
	}
	return res
}

func (f *fakeTuner) Last() *tuner.Result {
	return f.last
}

// readOnlyStore не поддерживает удаление.
type readOnlyStore struct{}

func (readOnlyStore) Lookup(context.Context, string) (graph.Command, bool, error) {
	return graph.Command{}, false, nil
}

func (readOnlyStore) Save(context.Context, string, graph.Command) error { return nil }

func newServer(t *testing.T, tn Tuner, store tuning.Store) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(Config{Tuner: tn, Store: store}).RegisterRoutes(mux)
	return mux
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestStatusAndPass(t *testing.T) {
	tn := &fakeTuner{}
	mux := newServer(t, tn, tuning.NewMemoryStore())

	if rec := serve(mux, http.MethodGet, "/api/v1/status"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before first pass, got %d", rec.Code)
	}

	rec := serve(mux, http.MethodPost, "/api/v1/tune")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if tn.passes != 1 {
		t.Errorf("expected 1 pass, got %d", tn.passes)
	}

	var body struct {
		Data PassResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Data.Nodes != 3 || body.Data.DurationMS != 5 || body.Data.Error != "" {
		t.Errorf("unexpected response %+v", body.Data)
	}

	if rec := serve(mux, http.MethodGet, "/api/v1/status"); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := serve(mux, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("expected healthy, got %d", rec.Code)
	}
}

func TestPassFailure(t *testing.T) {
	tn := &fakeTuner{err: errors.New("unknown command")}
	mux := newServer(t, tn, tuning.NewMemoryStore())

	rec := serve(mux, http.MethodPost, "/api/v1/tune")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
	if rec := serve(mux, http.MethodGet, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after failed pass, got %d", rec.Code)
	}
}

func TestRunPass_ReportsOwnResult(t *testing.T) {
	tn := &fakeTuner{overtake: &tuner.Result{
		GraphID: uuid.New(),
		Nodes:   9,
		Err:     errors.New("scheduled pass failed"),
	}}
	mux := newServer(t, tn, tuning.NewMemoryStore())

	rec := serve(mux, http.MethodPost, "/api/v1/tune")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for the request's own pass, got %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Data PassResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Data.Nodes != 3 || body.Data.Error != "" {
		t.Errorf("expected the request's own result, got %+v", body.Data)
	}
}

func TestSelections(t *testing.T) {
	store := tuning.NewMemoryStore()
	cmd := graph.Command{Name: "matmul", Backend: "gpu", Algorithm: 2}
	if err := store.Save(context.Background(), "abc", cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mux := newServer(t, &fakeTuner{}, store)

	rec := serve(mux, http.MethodGet, "/api/v1/selections/abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data SelectionResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := SelectionResponse{Key: "abc", Command: "matmul", Backend: "gpu", Algorithm: 2}
	if body.Data != want {
		t.Errorf("expected %+v, got %+v", want, body.Data)
	}

	if rec := serve(mux, http.MethodDelete, "/api/v1/selections/abc"); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := serve(mux, http.MethodGet, "/api/v1/selections/abc"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	if rec := serve(mux, http.MethodDelete, "/api/v1/selections/abc"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for second delete, got %d", rec.Code)
	}
}

func TestDeleteUnsupported(t *testing.T) {
	mux := newServer(t, &fakeTuner{}, readOnlyStore{})
	if rec := serve(mux, http.MethodDelete, "/api/v1/selections/x"); rec.Code != http.StatusNotImplemented {
		t.Errorf("expected 501, got %d", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestLogging_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tune", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != "req-42" {
		t.Errorf("expected request id echoed, got %q", got)
	}
	out := buf.String()
	if strings.Count(out, "request_id=req-42") != 2 {
		t.Errorf("expected request id on both records, got:\n%s", out)
	}
	if !strings.Contains(out, "status=202") {
		t.Errorf("expected status 202 logged, got:\n%s", out)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(rec.Header().Get(HeaderRequestID)); err != nil {
		t.Errorf("expected generated uuid, got %q", rec.Header().Get(HeaderRequestID))
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
