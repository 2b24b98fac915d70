// Package httpapi exposes the reward state operations and the two proxy
// gateways over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/tradon-app/tradon/internal/app"
	"github.com/tradon-app/tradon/internal/app/domain/chat"
	"github.com/tradon-app/tradon/internal/app/domain/identity"
	"github.com/tradon-app/tradon/internal/app/domain/reward"
	"github.com/tradon-app/tradon/internal/app/metrics"
	agentsvc "github.com/tradon-app/tradon/internal/app/services/agent"
	marketsvc "github.com/tradon-app/tradon/internal/app/services/market"
)

// handler bundles the HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns the router exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/coins", h.coins).Methods(http.MethodGet)
	r.HandleFunc("/agent", h.agent).Methods(http.MethodPost)

	r.HandleFunc("/state", h.state).Methods(http.MethodGet)
	r.HandleFunc("/state/user", h.setUser).Methods(http.MethodPost)
	r.HandleFunc("/state/points", h.addPoints).Methods(http.MethodPost)
	r.HandleFunc("/state/tickets", h.addTickets).Methods(http.MethodPost)
	r.HandleFunc("/state/tickets/consume", h.consumeTicket).Methods(http.MethodPost)
	r.HandleFunc("/state/passes", h.purchasePasses).Methods(http.MethodPost)
	r.HandleFunc("/state/timer/start", h.startTimer).Methods(http.MethodPost)
	r.HandleFunc("/state/timer/tick", h.tickTimer).Methods(http.MethodPost)
	r.HandleFunc("/state/tasks/reset", h.resetTasks).Methods(http.MethodPost)
	r.HandleFunc("/state/tasks/{key}/complete", h.completeTask).Methods(http.MethodPost)
	r.HandleFunc("/state/referrals", h.recordReferral).Methods(http.MethodPost)
	r.HandleFunc("/state/follow", h.setFollow).Methods(http.MethodPost)

	return metrics.InstrumentHandler(r)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "tradon",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// coins proxies the ranked market data page.
func (h *handler) coins(w http.ResponseWriter, r *http.Request) {
	assets, err := h.app.Market.TopAssets(r.Context())
	if err != nil {
		var upstream *marketsvc.UpstreamError
		if errors.As(err, &upstream) {
			writeJSON(w, upstream.StatusCode, map[string]string{"error": upstream.Message})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// agent relays a conversation to the completion upstream.
func (h *handler) agent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil || payload.Messages == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request: messages array is required"})
		return
	}

	var messages []chat.Message
	if err := json.Unmarshal(payload.Messages, &messages); err != nil || messages == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request: messages array is required"})
		return
	}
	for _, msg := range messages {
		if !chat.ValidRole(msg.Role) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request: unknown message role"})
			return
		}
	}

	reply, err := h.app.Agent.Reply(r.Context(), messages)
	if err != nil {
		var upstream *agentsvc.UpstreamError
		details := map[string]any{}
		message := err.Error()
		if errors.As(err, &upstream) {
			message = upstream.Message
			if upstream.Status != 0 {
				details["status"] = upstream.Status
				details["statusText"] = upstream.StatusText
			}
			if upstream.Body != "" {
				details["data"] = upstream.Body
			}
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to get AI response",
			"message": message,
			"details": details,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *handler) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Reward.State())
}

func (h *handler) setUser(w http.ResponseWriter, r *http.Request) {
	var payload *identity.User
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.app.Reward.SetUser(payload)
	h.writeApplied(w, true)
}

func (h *handler) addPoints(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.app.Reward.AddPoints(payload.Amount)
	h.writeApplied(w, payload.Amount > 0)
}

func (h *handler) addTickets(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Count int64 `json:"count"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.app.Reward.AddTickets(payload.Count)
	h.writeApplied(w, payload.Count > 0)
}

func (h *handler) consumeTicket(w http.ResponseWriter, _ *http.Request) {
	h.writeApplied(w, h.app.Reward.ConsumeTicket())
}

func (h *handler) purchasePasses(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Count int64 `json:"count"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.writeApplied(w, h.app.Reward.PurchasePasses(payload.Count))
}

func (h *handler) startTimer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DurationSeconds int64 `json:"durationSeconds"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.app.Reward.StartEarningTimer(payload.DurationSeconds)
	h.writeApplied(w, true)
}

func (h *handler) tickTimer(w http.ResponseWriter, _ *http.Request) {
	h.app.Reward.Tick()
	h.writeApplied(w, true)
}

func (h *handler) resetTasks(w http.ResponseWriter, _ *http.Request) {
	h.app.Reward.ResetDailyTasks()
	h.writeApplied(w, true)
}

func (h *handler) completeTask(w http.ResponseWriter, r *http.Request) {
	key := reward.TaskKey(mux.Vars(r)["key"])
	if _, ok := reward.LookupTask(key); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown task"})
		return
	}

	var payload struct {
		Points int64 `json:"points"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.writeApplied(w, h.app.Reward.CompleteTask(key, payload.Points))
}

func (h *handler) recordReferral(w http.ResponseWriter, _ *http.Request) {
	h.app.Reward.RecordReferral()
	h.writeApplied(w, true)
}

func (h *handler) setFollow(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Completed bool `json:"completed"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.app.Reward.SetFollowCompleted(payload.Completed)
	h.writeApplied(w, true)
}

// writeApplied answers a mutation with its outcome and the resulting state.
// Local policy violations are applied=false, never an error status.
func (h *handler) writeApplied(w http.ResponseWriter, applied bool) {
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"state":   h.app.Reward.State(),
	})
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
