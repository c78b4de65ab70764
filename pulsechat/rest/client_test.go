package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestListRoomsAuthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" || r.URL.Path != "/chat/rooms/" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header: %q", got)
		}
		json.NewEncoder(w).Encode([]Room{{ID: "r1", Name: "general"}})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.SetTokenSource(func() string { return "tok" })

	rooms, err := c.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != "r1" {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}
}

func TestSendMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/chat/rooms/r1/messages/" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content != "hello" {
			t.Errorf("unexpected body: %+v (%v)", req, err)
		}
		json.NewEncoder(w).Encode(Message{ID: "42", RoomID: "r1", Content: "hello"})
	}))
	defer ts.Close()

	msg, err := NewClient(ts.URL).SendMessage(context.Background(), "r1", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID != "42" || msg.Content != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestLikeMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/messages/42/like/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(LikeResult{LikesCount: 3, Liked: true})
	}))
	defer ts.Close()

	res, err := NewClient(ts.URL).LikeMessage(context.Background(), "42")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if res.LikesCount != 3 || !res.Liked {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestErrorResponseDecoded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "room is archived"})
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).SendMessage(context.Background(), "r1", "hello")
	if err == nil || !strings.Contains(err.Error(), "room is archived") {
		t.Fatalf("expected decoded API error, got: %v", err)
	}
}

func TestMarkMessageRead(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/messages/42/read/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	if err := NewClient(ts.URL).MarkMessageRead(context.Background(), "42"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
}
