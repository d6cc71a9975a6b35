package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	api := alice.New(app.sessionManager.LoadAndSave, app.timeout)

	mux.Handle("GET /api/healthy", http.HandlerFunc(app.healthy))

	mux.Handle("POST /api/scenarios", api.ThenFunc(app.generateScenario))
	mux.Handle("POST /api/scenarios/quickstart", api.ThenFunc(app.quickStart))
	mux.Handle("GET /api/cases", api.ThenFunc(app.listCases))
	mux.Handle("GET /api/cases/{caseID}/personas", api.ThenFunc(app.personas))
	if app.cfg.Debug {
		mux.Handle("GET /api/cases/{caseID}/solution", api.ThenFunc(app.solution))
		mux.Handle("GET /api/cases/{caseID}/personas/debug", api.ThenFunc(app.personaKnowledge))
	}

	mux.Handle("POST /api/sessions", api.ThenFunc(app.startSession))
	mux.Handle("GET /api/sessions/current", api.ThenFunc(app.currentSession))
	mux.Handle("GET /api/sessions/{sessionID}", api.ThenFunc(app.sessionSnapshot))
	mux.Handle("DELETE /api/sessions/{sessionID}", api.ThenFunc(app.resetSession))
	mux.Handle("POST /api/sessions/{sessionID}/chat", api.ThenFunc(app.chat))
	mux.Handle("POST /api/sessions/{sessionID}/accuse", api.ThenFunc(app.accuse))

	// Progress streams stay open for the whole generation, so they bypass the timeout handler.
	mux.Handle("GET /api/progress/{progressID}", http.HandlerFunc(app.streamProgress))

	mux.Handle("/", http.HandlerFunc(app.notFound))

	return alice.New(app.recoverPanic, app.logRequest, secureHeaders).Then(mux)
}
