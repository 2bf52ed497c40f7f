package gamification

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adaptlearn/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.GetProfile(userID)
	if err != nil {
		log.Printf("[handler] GetProfile error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get gamification profile"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	limit := intQueryParam(r.URL.Query(), "limit", 20)
	if limit > 50 {
		limit = 50
	}

	resp, err := h.service.GetLeaderboard(r.Context(), userID, limit)
	if errors.Is(err, ErrLeaderboardUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Leaderboard temporarily unavailable"})
		return
	}
	if err != nil {
		log.Printf("[handler] GetLeaderboard error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get leaderboard"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SetDailyGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.SetDailyGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	validTargets := map[int]bool{5: true, 10: true, 20: true, 30: true}
	if !validTargets[req.Target] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "target must be 5, 10, 20, or 30"})
		return
	}

	if err := h.service.SetDailyGoal(userID, req.Target); err != nil {
		log.Printf("[handler] SetDailyGoal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to update daily goal"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"daily_goal_target": req.Target})
}

func (h *Handler) BuyStreakFreeze(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.BuyStreakFreeze(userID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
