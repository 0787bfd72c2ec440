package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lg/clinic-nutrition-api/realtime"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRealtimeConnect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{hub: realtime.NewHub()}
	router := gin.New()
	router.GET("/api/realtime", fakeAuth(5, rolePatient), h.realtimeConnect)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/realtime"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitFor(t, func() bool { return h.hub.UserClientCount("5") == 1 })

	// Events for other users are not delivered
	h.notify(6, realtime.EventMealLogChanged, gin.H{"date": "2026-10-16"})
	h.notify(5, realtime.EventMealPlanCreated, gin.H{"plan_id": 12})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev realtime.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("bad event: %v", err)
	}
	if ev.Type != realtime.EventMealPlanCreated {
		t.Errorf("type = %s, want %s", ev.Type, realtime.EventMealPlanCreated)
	}
	var data struct {
		PlanID int `json:"plan_id"`
	}
	json.Unmarshal(ev.Data, &data)
	if data.PlanID != 12 {
		t.Errorf("plan_id = %d, want 12", data.PlanID)
	}

	conn.Close()
	waitFor(t, func() bool { return h.hub.ClientCount() == 0 })
}

func TestRealtimeConnect_NoHub(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{}
	router := gin.New()
	router.GET("/api/realtime", fakeAuth(5, rolePatient), h.realtimeConnect)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/realtime", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
