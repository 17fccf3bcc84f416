package handler_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/handler"
	"github.com/pasticeri/api/internal/middleware"
)

type mockFeedStore struct {
	items     []database.FeedItem
	createErr error
}

func (m *mockFeedStore) ListFeedItems(_ context.Context) ([]database.FeedItem, error) {
	out := make([]database.FeedItem, len(m.items))
	for i, item := range m.items {
		out[len(m.items)-1-i] = item
	}
	return out, nil
}

func (m *mockFeedStore) CreateFeedItem(_ context.Context, arg database.CreateFeedItemParams) (database.FeedItem, error) {
	if m.createErr != nil {
		return database.FeedItem{}, m.createErr
	}
	item := database.FeedItem{
		ID:          uuid.New(),
		Type:        arg.Type,
		Url:         arg.Url,
		Title:       arg.Title,
		Description: arg.Description,
		CreatedAt:   time.Now(),
	}
	m.items = append(m.items, item)
	return item, nil
}

func (m *mockFeedStore) DeleteFeedItem(_ context.Context, id uuid.UUID) (int64, error) {
	for i, item := range m.items {
		if item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func setupFeedRouter(store *mockFeedStore, files *fakeStorage) *chi.Mux {
	h := handler.NewFeedHandler(store, files, 0)
	r := chi.NewRouter()
	r.Route("/feed", func(r chi.Router) {
		h.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(testJWTSecret), middleware.RequireAdmin())
			h.RegisterAdminRoutes(r)
		})
	})
	return r
}

func TestFeedCreate(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]string
		files      []filePart
		wantStatus int
		wantURL    string
	}{
		{
			name:       "image upload",
			fields:     map[string]string{"type": "image", "title": "Wedding cake"},
			files:      []filePart{{field: "file", filename: "wedding.png", data: pngBytes}},
			wantStatus: http.StatusCreated,
			wantURL:    "/uploads/wedding.png",
		},
		{
			name:       "video upload",
			fields:     map[string]string{"type": "video", "title": "Behind the scenes"},
			files:      []filePart{{field: "file", filename: "kitchen.mp4", data: mp4Bytes}},
			wantStatus: http.StatusCreated,
			wantURL:    "/uploads/kitchen.mp4",
		},
		{
			name:       "video link",
			fields:     map[string]string{"type": "video", "url": "https://videos.example/reel/42"},
			wantStatus: http.StatusCreated,
			wantURL:    "https://videos.example/reel/42",
		},
		{
			name:       "image without file",
			fields:     map[string]string{"type": "image", "url": "https://img.example/a.png"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "video without file or link",
			fields:     map[string]string{"type": "video"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "video bad link",
			fields:     map[string]string{"type": "video", "url": "javascript:alert(1)"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown type",
			fields:     map[string]string{"type": "audio"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "image with video file",
			fields:     map[string]string{"type": "image"},
			files:      []filePart{{field: "file", filename: "kitchen.mp4", data: mp4Bytes}},
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "description too long",
			fields:     map[string]string{"type": "video", "url": "https://videos.example/1", "description": strings.Repeat("è", 1001)},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockFeedStore{}
			r := setupFeedRouter(store, newFakeStorage())

			rr := doMultipart(t, r, "/feed", tt.fields, tt.files, adminClaims())

			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				if len(store.items) != 0 {
					t.Error("nothing should be stored")
				}
				return
			}
			resp := decodeResponse(t, rr)
			if resp["url"] != tt.wantURL {
				t.Errorf("url: got %v, want %s", resp["url"], tt.wantURL)
			}
		})
	}
}

func TestFeedCreate_CustomerForbidden(t *testing.T) {
	store := &mockFeedStore{}
	r := setupFeedRouter(store, newFakeStorage())

	rr := doMultipart(t, r, "/feed", map[string]string{"type": "video", "url": "https://videos.example/1"}, nil, customerClaims("anna@example.com"))

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestFeedListAndDelete(t *testing.T) {
	store := &mockFeedStore{}
	first, _ := store.CreateFeedItem(context.Background(), database.CreateFeedItemParams{Type: "image", Url: "/uploads/a.png", Title: "First"})
	store.CreateFeedItem(context.Background(), database.CreateFeedItemParams{Type: "video", Url: "https://videos.example/1", Title: "Second"})
	r := setupFeedRouter(store, newFakeStorage())

	rr := doRequest(t, r, "GET", "/feed", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status: got %d, want %d", rr.Code, http.StatusOK)
	}
	list := decodeList(t, rr)
	if len(list) != 2 || list[0]["title"] != "Second" {
		t.Fatalf("expected newest first, got %v", list)
	}

	rr = doAuthRequest(t, r, "DELETE", "/feed/"+first.ID.String(), nil, adminClaims())
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if len(store.items) != 1 {
		t.Errorf("items: got %d, want 1", len(store.items))
	}

	rr = doAuthRequest(t, r, "DELETE", "/feed/"+first.ID.String(), nil, adminClaims())
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestFeedCreate_StoreErrorRemovesUpload(t *testing.T) {
	store := &mockFeedStore{createErr: errors.New("connection reset")}
	files := newFakeStorage()
	router := setupFeedRouter(store, files)

	rr := doMultipart(t, router, "/feed", map[string]string{"type": "image", "title": "Easter window"},
		[]filePart{{field: "file", filename: "window.png", data: pngBytes}}, adminClaims())

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if len(files.stored) != 0 {
		t.Errorf("expected stored media removed, still have %d file(s)", len(files.stored))
	}
}
