package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/drawbridge-app/drawbridge/internal/registry"
	"github.com/drawbridge-app/drawbridge/internal/ws"
)

// API serves the read-only HTTP surface: health, stats and room
// introspection. All answers come from live in-memory state.
type API struct {
	registry *registry.Registry
	hub      *ws.Hub
	started  time.Time
}

func New(reg *registry.Registry, hub *ws.Hub) *API {
	return &API{
		registry: reg,
		hub:      hub,
		started:  time.Now(),
	}
}

// Register mounts the API routes on the given router.
func (a *API) Register(r chi.Router) {
	r.Get("/health", a.HealthHandler)
	r.Get("/api/stats", a.StatsHandler)
	r.Get("/api/rooms", a.ListRoomsHandler)
	r.Get("/api/rooms/{id}", a.GetRoomHandler)
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response", "err", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"active_rooms":   len(a.registry.Rooms()),
		"participants":   a.registry.Count(),
		"connections":    a.hub.ConnCount(),
		"uptime_seconds": int(time.Since(a.started).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

type RoomResponse struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	counts := a.registry.Rooms()

	rooms := make([]RoomResponse, 0, len(counts))
	for id, members := range counts {
		rooms = append(rooms, RoomResponse{ID: id, Members: members})
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms": rooms,
		"count": len(rooms),
	})
}

type MemberResponse struct {
	Name      string `json:"name"`
	UserID    string `json:"userId"`
	Host      bool   `json:"host"`
	Presenter bool   `json:"presenter"`
}

func (a *API) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	members := a.registry.MembersOf(roomID)
	if len(members) == 0 {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	response := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		response = append(response, MemberResponse{
			Name:      m.Name,
			UserID:    m.UserID,
			Host:      m.Host,
			Presenter: m.Presenter,
		})
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"id":      roomID,
		"members": response,
	})
}
