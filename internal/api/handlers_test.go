package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/drawbridge-app/drawbridge/internal/ratelimit"
	"github.com/drawbridge-app/drawbridge/internal/registry"
	"github.com/drawbridge-app/drawbridge/internal/ws"
)

func setupTestAPI(t *testing.T) (*registry.Registry, http.Handler) {
	t.Helper()

	reg := registry.New()
	hub := ws.NewHub(ratelimit.NewPool(100, 200))

	router := chi.NewRouter()
	New(reg, hub).Register(router)

	return reg, router
}

func getJSON(t *testing.T, handler http.Handler, path string, wantStatus int) map[string]interface{} {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != wantStatus {
		t.Fatalf("GET %s: expected status %d, got %d", path, wantStatus, rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: invalid JSON response: %v", path, err)
	}
	return body
}

func TestHealthHandler(t *testing.T) {
	_, handler := setupTestAPI(t)

	body := getJSON(t, handler, "/health", http.StatusOK)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
}

func TestStatsHandler(t *testing.T) {
	reg, handler := setupTestAPI(t)

	reg.Add(registry.Participant{Name: "alice", RoomID: "r1", ConnectionID: "c1"})
	reg.Add(registry.Participant{Name: "bob", RoomID: "r1", ConnectionID: "c2"})
	reg.Add(registry.Participant{Name: "carol", RoomID: "r2", ConnectionID: "c3"})

	body := getJSON(t, handler, "/api/stats", http.StatusOK)
	if body["active_rooms"] != float64(2) {
		t.Errorf("Expected 2 active rooms, got %v", body["active_rooms"])
	}
	if body["participants"] != float64(3) {
		t.Errorf("Expected 3 participants, got %v", body["participants"])
	}
}

func TestListRoomsHandler(t *testing.T) {
	reg, handler := setupTestAPI(t)

	reg.Add(registry.Participant{Name: "alice", RoomID: "beta", ConnectionID: "c1"})
	reg.Add(registry.Participant{Name: "bob", RoomID: "alpha", ConnectionID: "c2"})
	reg.Add(registry.Participant{Name: "carol", RoomID: "alpha", ConnectionID: "c3"})

	body := getJSON(t, handler, "/api/rooms", http.StatusOK)
	if body["count"] != float64(2) {
		t.Fatalf("Expected 2 rooms, got %v", body["count"])
	}

	rooms := body["rooms"].([]interface{})
	first := rooms[0].(map[string]interface{})
	if first["id"] != "alpha" || first["members"] != float64(2) {
		t.Errorf("Expected alpha with 2 members first, got %v", first)
	}
}

func TestGetRoomHandler(t *testing.T) {
	reg, handler := setupTestAPI(t)

	reg.Add(registry.Participant{Name: "alice", UserID: "u1", RoomID: "r1", Host: true, ConnectionID: "c1"})

	body := getJSON(t, handler, "/api/rooms/r1", http.StatusOK)
	members := body["members"].([]interface{})
	if len(members) != 1 {
		t.Fatalf("Expected 1 member, got %d", len(members))
	}
	member := members[0].(map[string]interface{})
	if member["name"] != "alice" || member["host"] != true {
		t.Errorf("Unexpected member: %v", member)
	}
}

func TestGetRoomHandlerNotFound(t *testing.T) {
	_, handler := setupTestAPI(t)

	body := getJSON(t, handler, "/api/rooms/nope", http.StatusNotFound)
	if body["error"] == "" {
		t.Error("Expected an error message")
	}
}
