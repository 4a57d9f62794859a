package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/tensorgraph/internal/tuner"
	"github.com/shaiso/tensorgraph/internal/tuning"
)

// Tuner — проходы автотюнинга; реализуется *tuner.Tuner.
type Tuner interface {
	PassResult(ctx context.Context) *tuner.Result
	Last() *tuner.Result
}

// Deleter — Store, умеющий удалять записи.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Handler — обработчик API с зависимостями.
type Handler struct {
	tuner  Tuner
	store  tuning.Store
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Tuner  Tuner
	Store  tuning.Store
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		tuner:  cfg.Tuner,
		store:  cfg.Store,
		logger: logger,
	}
}

// PassResponse — итог прохода автотюнинга.
type PassResponse struct {
	GraphID    string    `json:"graph_id"`
	Nodes      int       `json:"nodes"`
	Started    time.Time `json:"started"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// PassFromResult конвертирует tuner.Result в PassResponse.
func PassFromResult(r *tuner.Result) PassResponse {
	resp := PassResponse{
		GraphID:    r.GraphID.String(),
		Nodes:      r.Nodes,
		Started:    r.Started,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

// SelectionResponse — сохранённая реализация операции.
type SelectionResponse struct {
	Key       string `json:"key"`
	Command   string `json:"command"`
	Backend   string `json:"backend"`
	Algorithm int    `json:"algorithm"`
}

// Healthz отвечает 503, если последний проход завершился ошибкой.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	last := h.tuner.Last()
	if last != nil && last.Err != nil {
		Error(w, http.StatusServiceUnavailable, ErrCodePassFailed, last.Err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GetStatus возвращает итог последнего прохода.
// GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	last := h.tuner.Last()
	if last == nil {
		NotFound(w, "no autotune pass yet")
		return
	}
	Success(w, PassFromResult(last))
}

// RunPass запускает внеочередной проход и ждёт его завершения.
// POST /api/v1/tune
func (h *Handler) RunPass(w http.ResponseWriter, r *http.Request) {
	res := h.tuner.PassResult(r.Context())
	if res.Err != nil {
		JSON(w, http.StatusUnprocessableEntity, DataResponse{Data: PassFromResult(res)})
		return
	}
	Success(w, PassFromResult(res))
}

// GetSelection возвращает сохранённую реализацию по ключу.
// GET /api/v1/selections/{key}
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	cmd, found, err := h.store.Lookup(r.Context(), key)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}
	if !found {
		NotFound(w, "selection not found")
		return
	}

	Success(w, SelectionResponse{
		Key:       key,
		Command:   cmd.Name,
		Backend:   cmd.Backend,
		Algorithm: cmd.Algorithm,
	})
}

// DeleteSelection удаляет реализацию; следующий проход выберет её заново.
// DELETE /api/v1/selections/{key}
func (h *Handler) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	d, ok := h.store.(Deleter)
	if !ok {
		Error(w, http.StatusNotImplemented, ErrCodeUnsupported, "store does not support delete")
		return
	}

	err := d.Delete(r.Context(), r.PathValue("key"))
	if HandleStoreError(w, h.logger, err, "selection not found") {
		return
	}
	NoContent(w)
}
