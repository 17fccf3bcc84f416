package handler

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/enum"
	"github.com/pasticeri/api/internal/storage"
)

const maxFeedDescription = 1000

// FeedStore defines the database methods needed by feed handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type FeedStore interface {
	ListFeedItems(ctx context.Context) ([]database.FeedItem, error)
	CreateFeedItem(ctx context.Context, arg database.CreateFeedItemParams) (database.FeedItem, error)
	DeleteFeedItem(ctx context.Context, id uuid.UUID) (int64, error)
}

// FeedHandler serves the public media feed.
type FeedHandler struct {
	store     FeedStore
	files     storage.Storage
	maxUpload int64
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(store FeedStore, files storage.Storage, maxUpload int64) *FeedHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &FeedHandler{store: store, files: files, maxUpload: maxUpload}
}

// RegisterRoutes registers the public feed endpoint. Mounted at /feed.
func (h *FeedHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterAdminRoutes registers feed management. Mounted at /feed behind RequireRole(ADMIN).
func (h *FeedHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
}

type feedItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func toFeedItemResponse(f database.FeedItem) feedItemResponse {
	return feedItemResponse{
		ID:          f.ID,
		Type:        f.Type,
		URL:         f.Url,
		Title:       f.Title,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
	}
}

// List returns feed items newest first.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListFeedItems(r.Context())
	if err != nil {
		log.Printf("ERROR: list feed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]feedItemResponse, len(items))
	for i, item := range items {
		resp[i] = toFeedItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create publishes a feed item. Multipart fields: type, title, description,
// file, url. Images need an uploaded image; videos take a file or a URL.
func (h *FeedHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, h.maxUpload); err != nil {
		writeUploadError(w, err)
		return
	}

	itemType := strings.TrimSpace(r.FormValue("type"))
	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	link := strings.TrimSpace(r.FormValue("url"))

	if itemType != enum.FeedTypeImage && itemType != enum.FeedTypeVideo {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type must be image or video"})
		return
	}
	if utf8.RuneCountInString(description) > maxFeedDescription {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description must be at most 1000 characters"})
		return
	}

	var mediaURL string
	uploaded := false
	file, fh, err := r.FormFile("file")
	if err == nil {
		file.Close()
	}
	switch {
	case err == nil:
		contentType, err := checkUpload(fh, h.maxUpload, itemType+"/")
		if err != nil {
			writeUploadError(w, err)
			return
		}
		f, err := fh.Open()
		if err != nil {
			writeUploadError(w, err)
			return
		}
		defer f.Close()

		mediaURL, err = h.files.Store(r.Context(), fh.Filename, contentType, f)
		if err != nil {
			log.Printf("ERROR: store feed media: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		uploaded = true

	case itemType == enum.FeedTypeVideo && link != "":
		u, err := url.Parse(link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid url"})
			return
		}
		mediaURL = link

	case itemType == enum.FeedTypeImage:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image file is required"})
		return

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "video file or url is required"})
		return
	}

	item, err := h.store.CreateFeedItem(r.Context(), database.CreateFeedItemParams{
		Type:        itemType,
		Url:         mediaURL,
		Title:       title,
		Description: description,
	})
	if err != nil {
		log.Printf("ERROR: create feed item: %v", err)
		if uploaded {
			if err := h.files.Remove(context.WithoutCancel(r.Context()), mediaURL); err != nil {
				log.Printf("WARN: remove orphaned feed media %s: %v", mediaURL, err)
			}
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toFeedItemResponse(item))
}

// Delete removes a feed item. Stored media is left in place.
func (h *FeedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid feed item ID"})
		return
	}

	n, err := h.store.DeleteFeedItem(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: delete feed item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "feed item not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
