package main

import "net/http"

// healthy reports readiness to load balancers and e2etest.StartServer. It touches neither the database nor the text
// generation backend.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
