package main

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/investigation"
	"github.com/myrjola/sheerluck-engine/internal/models"
)

// currentSessionKey stores the id of the investigation the browser is playing in the scs session.
const currentSessionKey = "currentSessionID"

const defaultListLimit = 20

type generateScenarioRequest struct {
	Premise    string `json:"premise"`
	Difficulty string `json:"difficulty"`
	// ProgressID lets the client subscribe to /api/progress/{id} before the generation starts.
	ProgressID string `json:"progress_id"`
}

type generateScenarioResponse struct {
	models.Summary
	ProgressID string `json:"progress_id"`
}

func (app *application) generateScenario(w http.ResponseWriter, r *http.Request) {
	var req generateScenarioRequest
	if err := readJSON(w, r, &req); err != nil {
		app.engineError(w, r, err)
		return
	}
	if req.ProgressID == "" {
		req.ProgressID = uuid.NewString()
	}

	summary, err := app.engine.GenerateScenario(r.Context(), req.Premise, models.ParseDifficulty(req.Difficulty),
		req.ProgressID)
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, generateScenarioResponse{Summary: summary, ProgressID: req.ProgressID})
}

func (app *application) quickStart(w http.ResponseWriter, r *http.Request) {
	summary, err := app.engine.QuickStart(r.Context())
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, summary)
}

func (app *application) listCases(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			app.engineError(w, r, errors.Wrap(errBadRequest, "parse limit", slog.String("limit", raw)))
			return
		}
		limit = n
	}
	listings, err := app.engine.Cases(r.Context(), limit)
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, map[string]any{"cases": listings})
}

func (app *application) personas(w http.ResponseWriter, r *http.Request) {
	personas, err := app.engine.Personas(r.Context(), r.PathValue("caseID"))
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, map[string]any{"personas": personas})
}

// solution is only routed when debugging is enabled.
func (app *application) solution(w http.ResponseWriter, r *http.Request) {
	solution, err := app.engine.Solution(r.Context(), r.PathValue("caseID"))
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, solution)
}

// personaKnowledge is only routed when debugging is enabled.
func (app *application) personaKnowledge(w http.ResponseWriter, r *http.Request) {
	knowledge, err := app.engine.PersonaKnowledge(r.Context(), r.PathValue("caseID"))
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, map[string]any{"personas": knowledge})
}

type startSessionRequest struct {
	CaseID string `json:"case_id"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
	CaseID    string `json:"case_id"`
}

func (app *application) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := readJSON(w, r, &req); err != nil {
		app.engineError(w, r, err)
		return
	}
	if req.CaseID == "" {
		app.engineError(w, r, errors.Wrap(errBadRequest, "case_id missing"))
		return
	}

	sessionID, err := app.engine.StartSession(r.Context(), req.CaseID)
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	if err = app.sessionManager.RenewToken(r.Context()); err != nil {
		app.serverError(w, r, errors.Wrap(err, "renew token"))
		return
	}
	app.sessionManager.Put(r.Context(), currentSessionKey, sessionID)
	app.writeJSON(w, r, http.StatusCreated, startSessionResponse{SessionID: sessionID, CaseID: req.CaseID})
}

func (app *application) currentSession(w http.ResponseWriter, r *http.Request) {
	sessionID := app.sessionManager.GetString(r.Context(), currentSessionKey)
	if sessionID == "" {
		app.engineError(w, r, errors.Wrap(investigation.ErrUnknownSession, "no current session"))
		return
	}
	app.writeSnapshot(w, r, sessionID)
}

func (app *application) sessionSnapshot(w http.ResponseWriter, r *http.Request) {
	app.writeSnapshot(w, r, r.PathValue("sessionID"))
}

func (app *application) writeSnapshot(w http.ResponseWriter, r *http.Request, sessionID string) {
	snapshot, err := app.engine.SessionSnapshot(sessionID)
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, snapshot)
}

func (app *application) resetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	if err := app.engine.ResetSession(r.Context(), sessionID); err != nil {
		app.engineError(w, r, err)
		return
	}
	if app.sessionManager.GetString(r.Context(), currentSessionKey) == sessionID {
		app.sessionManager.Remove(r.Context(), currentSessionKey)
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	PersonaID string               `json:"persona_id"`
	Message   string               `json:"message"`
	History   []models.ChatMessage `json:"history"`
}

func (app *application) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := readJSON(w, r, &req); err != nil {
		app.engineError(w, r, err)
		return
	}

	response, err := app.engine.Chat(r.Context(), investigation.ChatRequest{
		SessionID: r.PathValue("sessionID"),
		PersonaID: req.PersonaID,
		Message:   req.Message,
		History:   req.History,
	})
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, response)
}

type accuseRequest struct {
	PersonaID string `json:"persona_id"`
}

type accuseResponse struct {
	investigation.Verdict
	AccusedID string `json:"accused_id"`
}

func (app *application) accuse(w http.ResponseWriter, r *http.Request) {
	var req accuseRequest
	if err := readJSON(w, r, &req); err != nil {
		app.engineError(w, r, err)
		return
	}

	verdict, err := app.engine.Accuse(r.Context(), r.PathValue("sessionID"), req.PersonaID)
	if err != nil {
		app.engineError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, accuseResponse{Verdict: verdict, AccusedID: req.PersonaID})
}
