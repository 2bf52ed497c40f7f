package questions

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/adaptlearn/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ── Bank Handlers ───────────────────────────────────────

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	// Validate subject
	if !models.ValidSubjects[req.Subject] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid subject"})
		return
	}

	// Validate grade band
	if !models.ValidGradeBands[req.GradeBand] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "grade_band must be 'elementary', 'middle', or 'high'"})
		return
	}

	// Validate difficulty
	if req.Difficulty < 0 || req.Difficulty > 10 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be between 0 and 10"})
		return
	}

	if strings.TrimSpace(req.Stem) == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "stem is required"})
		return
	}

	if len(req.Choices) != 4 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "exactly 4 choices are required"})
		return
	}

	// The bank stores choice IDs uppercase; answer matching depends on it.
	validChoices := map[string]bool{"A": true, "B": true, "C": true, "D": true}
	seen := map[string]bool{}
	correctID := strings.ToUpper(strings.TrimSpace(req.CorrectChoice))
	correctFound := false
	for i, c := range req.Choices {
		id := strings.ToUpper(strings.TrimSpace(c.ChoiceID))
		if !validChoices[id] {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "choice IDs must be A, B, C, or D"})
			return
		}
		if seen[id] {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "duplicate choice ID: " + id})
			return
		}
		seen[id] = true
		if strings.TrimSpace(c.ChoiceText) == "" {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "choice text cannot be empty"})
			return
		}
		req.Choices[i].ChoiceID = id
		if id == correctID {
			correctFound = true
		}
	}
	if !correctFound {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "correct_choice must match one of the choice IDs"})
		return
	}
	req.CorrectChoice = correctID

	question, err := h.service.CreateQuestion(r.Context(), &req)
	if err != nil {
		log.Printf("[handler] Create error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create question"})
		return
	}

	writeJSON(w, http.StatusCreated, question)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	subject := query.Get("subject")
	if subject != "" && !models.ValidSubjects[models.Subject(subject)] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid subject"})
		return
	}

	gradeBand := query.Get("grade_band")
	if gradeBand != "" && !models.ValidGradeBands[models.GradeBand(gradeBand)] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid grade_band"})
		return
	}

	reviewStatus := query.Get("review_status")
	if reviewStatus != "" {
		validStatuses := map[string]bool{"unreviewed": true, "approved": true, "flagged": true, "rejected": true}
		if !validStatuses[reviewStatus] {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid review_status"})
			return
		}
	}

	filter := ListFilter{Subject: subject, GradeBand: gradeBand, ReviewStatus: reviewStatus}
	if raw := query.Get("min_difficulty"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 10 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "min_difficulty must be between 0 and 10"})
			return
		}
		filter.MinDifficulty = &v
	}
	if raw := query.Get("max_difficulty"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 10 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "max_difficulty must be between 0 and 10"})
			return
		}
		filter.MaxDifficulty = &v
	}

	page := intQueryParam(query, "page", 1)
	pageSize := intQueryParam(query, "page_size", 20)

	resp, err := h.service.ListQuestions(r.Context(), filter, page, pageSize)
	if err != nil {
		log.Printf("[handler] List error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list questions"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	question, err := h.service.GetQuestion(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
			return
		}
		log.Printf("[handler] Get error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get question"})
		return
	}

	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	// Validate subject
	if !models.ValidSubjects[req.Subject] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid subject"})
		return
	}

	// Validate grade band
	if !models.ValidGradeBands[req.GradeBand] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "grade_band must be 'elementary', 'middle', or 'high'"})
		return
	}

	// Validate difficulty
	if req.Difficulty < 0 || req.Difficulty > 10 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be between 0 and 10"})
		return
	}

	// Default count
	if req.Count <= 0 {
		req.Count = 6
	}
	if req.Count > 10 {
		req.Count = 10
	}

	resp, err := h.service.GenerateBatch(r.Context(), req.Subject, req.GradeBand, req.Difficulty, req.Count)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Generation failed: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ── Review Handlers ─────────────────────────────────────

func (h *Handler) Flagged(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := intQueryParam(query, "limit", 20)
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	offset := intQueryParam(query, "offset", 0)

	questions, total, err := h.service.FlaggedQuestions(r.Context(), limit, offset)
	if err != nil {
		log.Printf("[handler] Flagged error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get flagged questions"})
		return
	}

	if questions == nil {
		questions = []models.QuestionItem{}
	}

	writeJSON(w, http.StatusOK, models.QuestionListResponse{
		Questions: questions,
		Total:     total,
		Page:      offset/limit + 1,
		PageSize:  limit,
	})
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	var req models.ReviewQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	validStatuses := map[models.ReviewStatus]bool{
		models.ReviewApproved: true,
		models.ReviewFlagged:  true,
		models.ReviewRejected: true,
	}
	if !validStatuses[req.Status] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "status must be 'approved', 'flagged', or 'rejected'"})
		return
	}

	if err := h.service.ReviewQuestion(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
			return
		}
		log.Printf("[handler] Review error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to update review status"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

// ── Admin Handlers ──────────────────────────────────────

func (h *Handler) Coverage(w http.ResponseWriter, r *http.Request) {
	coverage, err := h.service.Coverage(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get bank coverage"})
		return
	}
	writeJSON(w, http.StatusOK, coverage)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get bank stats"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Recalibration(w http.ResponseWriter, r *http.Request) {
	minAnswers := intQueryParam(r.URL.Query(), "min_answers", 20)

	candidates, err := h.service.RecalibrationCandidates(r.Context(), minAnswers)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Recalibration scan failed: " + err.Error()})
		return
	}

	if candidates == nil {
		candidates = []models.RecalibrationCandidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *Handler) ApplyDifficulty(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	var req models.ApplyDifficultyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Difficulty < 0 || req.Difficulty > 10 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be between 0 and 10"})
		return
	}

	if err := h.service.ApplyDifficulty(r.Context(), id, req.Difficulty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
			return
		}
		log.Printf("[handler] ApplyDifficulty error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to update difficulty"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]float64{"difficulty": req.Difficulty})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	envelope, err := h.service.Export(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Export failed: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, envelope)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20) // 50MB limit

	var envelope models.ExportEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	if len(envelope.Questions) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "No questions in payload"})
		return
	}

	result, err := h.service.Import(r.Context(), &envelope)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Import failed: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
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
