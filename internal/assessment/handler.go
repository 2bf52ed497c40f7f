package assessment

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/adaptlearn/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.StartAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if !models.ValidSubjects[req.Subject] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "subject must be one of 'math', 'reading', 'science', 'language_arts', 'social_studies'"})
		return
	}
	if req.GradeLevel != nil && (*req.GradeLevel < 1 || *req.GradeLevel > 12) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "grade_level must be between 1 and 12"})
		return
	}

	resp, err := h.service.Start(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrBankExhausted) {
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "No questions available for this subject yet"})
			return
		}
		log.Printf("[handler] Start error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to start assessment"})
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "session_id is required"})
		return
	}
	if req.QuestionID <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "question_id is required"})
		return
	}
	if req.Response == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "response is required"})
		return
	}

	resp, err := h.service.SubmitAnswer(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Session not found"})
		case errors.Is(err, ErrInvalidState):
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session is not active"})
		case errors.Is(err, ErrUnexpectedQuestion):
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Answer does not match the current question"})
		case errors.Is(err, ErrSessionConflict):
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session was updated concurrently; fetch the session and retry"})
		default:
			log.Printf("[handler] SubmitAnswer error: %v", err)
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to submit answer"})
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	sessionID := mux.Vars(r)["id"]
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Session ID is required"})
		return
	}

	summary, err := h.service.Abandon(r.Context(), userID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Session not found"})
		case errors.Is(err, ErrInvalidState):
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session is already finished"})
		case errors.Is(err, ErrSessionConflict):
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session was updated concurrently; fetch the session and retry"})
		default:
			log.Printf("[handler] Abandon error: %v", err)
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to abandon session"})
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	sessionID := mux.Vars(r)["id"]
	session, err := h.service.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Session not found"})
			return
		}
		log.Printf("[handler] GetSession error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get session"})
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	limit := intQueryParam(r.URL.Query(), "limit", 20)

	resp, err := h.service.ListSessions(r.Context(), userID, limit)
	if err != nil {
		log.Printf("[handler] ListSessions error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list sessions"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
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
