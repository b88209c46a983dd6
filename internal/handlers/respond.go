// Package handlers contains the HTTP controllers. Every response uses the
// same JSON envelope; status transition endpoints delegate the decision to
// the rules engine and only persist what it returns.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vertilift/lift-maintenance/internal/notify"
	"github.com/vertilift/lift-maintenance/internal/rules"
)

// envelope is the JSON shape shared by all endpoints.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondList(w http.ResponseWriter, data interface{}, count int) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// dispatchEffects runs the notification side effects of an authorized
// decision. Render effects are handled by the owning controller before the
// transition is persisted, so they are skipped here.
func dispatchEffects(notifier notify.Notifier, effects []rules.SideEffect) {
	for _, effect := range effects {
		if effect.Kind != rules.EffectNotify {
			continue
		}
		if effect.BroadcastRole != "" {
			notifier.NotifyRole(effect.BroadcastRole, effect.Title, effect.Message, effect.Severity)
			continue
		}
		if id, err := primitive.ObjectIDFromHex(effect.TargetUserID); err == nil {
			notifier.Notify(id, effect.Title, effect.Message, effect.Severity)
		}
	}
}

func hasRenderEffect(effects []rules.SideEffect) bool {
	for _, effect := range effects {
		if effect.Kind == rules.EffectRenderPDF {
			return true
		}
	}
	return false
}
