package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"coinzy/internal/models"
	"coinzy/internal/realtime"
	"coinzy/internal/service"
	"coinzy/internal/validation"

	"github.com/shopspring/decimal"
)

// ProgressHandler exposes the progress engine over JSON
type ProgressHandler struct {
	progress *service.ProgressService
	hub      *realtime.Hub
	debug    bool
}

// NewProgressHandler creates a new progress handler. hub may be nil when realtime is off.
func NewProgressHandler(progress *service.ProgressService, hub *realtime.Hub, debug bool) *ProgressHandler {
	return &ProgressHandler{
		progress: progress,
		hub:      hub,
		debug:    debug,
	}
}

// Register wires every progress route onto mux
func (h *ProgressHandler) Register(mux *http.ServeMux, mw *Middleware) {
	child := func(fn http.HandlerFunc) http.HandlerFunc {
		return mw.RateLimit(mw.RequireRole(fn, models.RoleChild))
	}
	parent := func(fn http.HandlerFunc) http.HandlerFunc {
		return mw.RateLimit(mw.RequireRole(fn, models.RoleParent))
	}
	anyone := func(fn http.HandlerFunc) http.HandlerFunc {
		return mw.RateLimit(mw.RequireRole(fn, models.RoleParent, models.RoleChild))
	}

	mux.HandleFunc("GET /api/progress", mw.RequireAuth(h.GetProgress))

	mux.HandleFunc("POST /api/xp", child(h.AddXP))
	mux.HandleFunc("POST /api/questions/{id}/complete", child(h.CompleteQuestion))
	mux.HandleFunc("POST /api/questions/{id}/answer", child(h.AnswerQuestion))
	mux.HandleFunc("PUT /api/questions/current", child(h.SetCurrentQuestion))

	mux.HandleFunc("POST /api/bank/deposits", child(h.DepositRealMoney))
	mux.HandleFunc("POST /api/bank/withdrawals", child(h.WithdrawRealMoney))
	mux.HandleFunc("POST /api/bank/coins", child(h.DepositCoins))
	mux.HandleFunc("POST /api/bank/bonus", parent(h.GrantBonus))
	mux.HandleFunc("PUT /api/bank/goal", anyone(h.SetSavingsGoal))

	mux.HandleFunc("POST /api/streak", child(h.UpdateStreak))

	mux.HandleFunc("POST /api/missions/{id}/advance", child(h.AdvanceMission))
	mux.HandleFunc("POST /api/missions/{id}/claim", child(h.ClaimMissionReward))
	mux.HandleFunc("POST /api/missions/reset", parent(h.ResetDailyMissions))

	mux.HandleFunc("POST /api/notifications/{id}/read", parent(h.MarkNotificationAsRead))
	mux.HandleFunc("POST /api/achievements/{id}/unlock", parent(h.UnlockAchievement))
	mux.HandleFunc("PUT /api/family/contact", parent(h.SetContact))

	if h.hub != nil {
		mux.HandleFunc("GET /api/ws", mw.RequireRole(h.Events, models.RoleParent))
	}
}

// amountRequest takes the amount as a JSON number or a numeric string
type amountRequest struct {
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
}

type xpRequest struct {
	Amount int `json:"amount"`
}

type answerRequest struct {
	Option int `json:"option"`
}

type currentQuestionRequest struct {
	Index int `json:"index"`
}

type goalRequest struct {
	Goal decimal.Decimal `json:"goal"`
}

type advanceRequest struct {
	Progress int `json:"progress"`
}

type contactRequest struct {
	Email string `json:"email"`
}

type contactResponse struct {
	FamilyID string `json:"familyId"`
	Email    string `json:"email"`
}

// familyID returns the authenticated caller's family. RequireAuth guarantees it is set.
func familyID(r *http.Request) string {
	if auth := GetAuthFromContext(r.Context()); auth != nil {
		return auth.FamilyID
	}
	return ""
}

func (h *ProgressHandler) respond(w http.ResponseWriter, op string, result *service.Result, err error) {
	if err != nil {
		respondServiceError(w, "Failed to "+op, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetProgress returns the family's current progress
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	result, err := h.progress.Snapshot(r.Context(), familyID(r))
	h.respond(w, "load progress", result, err)
}

// AddXP credits experience points
func (h *ProgressHandler) AddXP(w http.ResponseWriter, r *http.Request) {
	var req xpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.progress.AddXP(r.Context(), familyID(r), req.Amount)
	h.respond(w, "add xp", result, err)
}

// CompleteQuestion marks a lesson question done
func (h *ProgressHandler) CompleteQuestion(w http.ResponseWriter, r *http.Request) {
	result, err := h.progress.CompleteQuestion(r.Context(), familyID(r), r.PathValue("id"))
	h.respond(w, "complete question", result, err)
}

// AnswerQuestion grades a chosen option
func (h *ProgressHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.progress.AnswerQuestion(r.Context(), familyID(r), r.PathValue("id"), req.Option)
	h.respond(w, "answer question", result, err)
}

// SetCurrentQuestion moves the lesson cursor
func (h *ProgressHandler) SetCurrentQuestion(w http.ResponseWriter, r *http.Request) {
	var req currentQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.progress.SetCurrentQuestion(r.Context(), familyID(r), req.Index)
	h.respond(w, "set current question", result, err)
}

// decodeMovement reads and validates an amount with a description
func decodeMovement(w http.ResponseWriter, r *http.Request) (decimal.Decimal, string, bool) {
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return decimal.Zero, "", false
	}
	amount, err := validation.ParseAmount(req.Amount.String())
	if err != nil {
		respondServiceError(w, "Invalid amount", err)
		return decimal.Zero, "", false
	}
	description, err := validation.ValidateDescription(req.Description)
	if err != nil {
		respondServiceError(w, "Invalid description", err)
		return decimal.Zero, "", false
	}
	return amount, description, true
}

// DepositRealMoney records money the child put in the bank
func (h *ProgressHandler) DepositRealMoney(w http.ResponseWriter, r *http.Request) {
	amount, description, ok := decodeMovement(w, r)
	if !ok {
		return
	}
	result, err := h.progress.DepositRealMoney(r.Context(), familyID(r), amount, description)
	h.respond(w, "deposit money", result, err)
}

// WithdrawRealMoney records money taken out of the bank
func (h *ProgressHandler) WithdrawRealMoney(w http.ResponseWriter, r *http.Request) {
	amount, description, ok := decodeMovement(w, r)
	if !ok {
		return
	}
	result, err := h.progress.WithdrawRealMoney(r.Context(), familyID(r), amount, description)
	h.respond(w, "withdraw money", result, err)
}

// DepositCoins moves earned coins into the bank
func (h *ProgressHandler) DepositCoins(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := validation.ParseAmount(req.Amount.String())
	if err != nil {
		respondServiceError(w, "Invalid amount", err)
		return
	}
	result, err := h.progress.DepositCoins(r.Context(), familyID(r), amount)
	h.respond(w, "deposit coins", result, err)
}

// GrantBonus lets a parent reward the child
func (h *ProgressHandler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	amount, description, ok := decodeMovement(w, r)
	if !ok {
		return
	}
	result, err := h.progress.GrantBonus(r.Context(), familyID(r), amount, description)
	h.respond(w, "grant bonus", result, err)
}

func (h *ProgressHandler) SetSavingsGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.progress.SetSavingsGoal(r.Context(), familyID(r), req.Goal)
	h.respond(w, "set savings goal", result, err)
}

func (h *ProgressHandler) UpdateStreak(w http.ResponseWriter, r *http.Request) {
	result, err := h.progress.UpdateStreak(r.Context(), familyID(r))
	h.respond(w, "update streak", result, err)
}

func (h *ProgressHandler) AdvanceMission(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.progress.AdvanceMission(r.Context(), familyID(r), r.PathValue("id"), req.Progress)
	h.respond(w, "advance mission", result, err)
}

func (h *ProgressHandler) ClaimMissionReward(w http.ResponseWriter, r *http.Request) {
	result, err := h.progress.ClaimMissionReward(r.Context(), familyID(r), r.PathValue("id"))
	h.respond(w, "claim mission reward", result, err)
}

func (h *ProgressHandler) ResetDailyMissions(w http.ResponseWriter, r *http.Request) {
	result, err := h.progress.ResetDailyMissions(r.Context(), familyID(r))
	h.respond(w, "reset missions", result, err)
}

func (h *ProgressHandler) MarkNotificationAsRead(w http.ResponseWriter, r *http.Request) {
	result, err := h.progress.MarkNotificationAsRead(r.Context(), familyID(r), r.PathValue("id"))
	h.respond(w, "mark notification read", result, err)
}

func (h *ProgressHandler) UnlockAchievement(w http.ResponseWriter, r *http.Request) {
	result, err := h.progress.UnlockAchievement(r.Context(), familyID(r), r.PathValue("id"))
	h.respond(w, "unlock achievement", result, err)
}

// SetContact stores the parent's notification e-mail
func (h *ProgressHandler) SetContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		respondServiceError(w, "Invalid email", err)
		return
	}
	contact, err := h.progress.SetContactEmail(r.Context(), familyID(r), req.Email)
	if err != nil {
		respondServiceError(w, "Failed to set contact", err)
		return
	}
	respondJSON(w, http.StatusOK, contactResponse{FamilyID: contact.FamilyID, Email: contact.Email})
}

// Events upgrades to a WebSocket that streams the family's progress events
func (h *ProgressHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := familyID(r)
	if h.debug {
		log.Printf("[DEBUG] WebSocket subscribe for family %s (%d open)", id, h.hub.Connections())
	}
	if err := h.hub.Serve(w, r, id); err != nil {
		// The upgrader has already written a response when the handshake fails
		log.Printf("WebSocket session for family %s ended: %v", id, err)
	}
}
