package history

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adaptlearn/backend/internal/models"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Responses returns a page of the user's answered questions, newest first.
func (h *Handler) Responses(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	query := r.URL.Query()

	subject := query.Get("subject")
	if subject != "" {
		if !models.ValidSubjects[models.Subject(subject)] {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Unknown subject"})
			return
		}
	}

	page := intQueryParam(query, "page", 1)
	if page <= 0 {
		page = 1
	}
	pageSize := intQueryParam(query, "page_size", 20)
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	resp, err := h.store.ListResponses(r.Context(), userID, subject, page, pageSize)
	if err != nil {
		log.Printf("[handler] Responses error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load responses"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Stats returns lifetime accuracy, per-subject rollups, and the recent
// daily trend for the user.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	stats, err := h.store.Stats(r.Context(), userID)
	if err != nil {
		log.Printf("[handler] Stats error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load stats"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Profiles returns the user's ability profile for each subject.
func (h *Handler) Profiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	profiles, err := h.store.GetProfiles(r.Context(), userID)
	if err != nil {
		log.Printf("[handler] Profiles error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load profiles"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": profiles})
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value("user_id").(int64)
	return userID, ok
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	raw := query.Get(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
