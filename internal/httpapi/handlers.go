package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/mindless-backend/internal/hub"
	"github.com/DoyleJ11/mindless-backend/internal/lobby"
	"github.com/DoyleJ11/mindless-backend/internal/store"
)

// RoundSource lists a room's archived voting rounds.
type RoundSource interface {
	Rounds(ctx context.Context, code string) ([]store.RoundRecord, error)
}

type roundView struct {
	Theme          string    `json:"theme"`
	Kind           string    `json:"kind"`
	EliminatedID   string    `json:"eliminatedId,omitempty"`
	EliminatedName string    `json:"eliminatedName,omitempty"`
	MindlessName   string    `json:"mindlessName"`
	GameEnded      bool      `json:"gameEnded"`
	PlayedAt       time.Time `json:"playedAt"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// PeekRoom lets a client check a code before opening a socket.
func PeekRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := h.Get(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			if errors.Is(err, hub.ErrRoomNotFound) {
				http.Error(w, "room not found", http.StatusNotFound)
				return
			}
			http.Error(w, "lookup failed", http.StatusServiceUnavailable)
			return
		}
		sum, err := lb.Summary(r.Context())
		if errors.Is(err, lobby.ErrRoomClosed) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "lookup failed", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func RoomHistory(src RoundSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := src.Rounds(r.Context(), hub.NormalizeCode(chi.URLParam(r, "code")))
		if err != nil {
			http.Error(w, "history unavailable", http.StatusServiceUnavailable)
			return
		}
		out := make([]roundView, 0, len(rows))
		for _, row := range rows {
			out = append(out, roundView{
				Theme:          row.Theme,
				Kind:           row.Kind,
				EliminatedID:   row.EliminatedID,
				EliminatedName: row.EliminatedName,
				MindlessName:   row.MindlessName,
				GameEnded:      row.GameEnded,
				PlayedAt:       row.PlayedAt.UTC(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
