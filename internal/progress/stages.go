package progress

import (
	"fmt"

	"github.com/myrjola/sheerluck-engine/internal/models"
)

const (
	personasStartPercent = 45
	personasSpanPercent  = 35
)

func Started(r Reporter) {
	r.Report(models.ProgressUpdate{
		Stage:   models.ProgressStageStarted,
		Percent: 0,
		Message: "Generation started...",
	})
}

func GeneratingScenario(r Reporter, attempt int) {
	message := "Writing the case..."
	if attempt > 0 {
		message = fmt.Sprintf("Rewriting the case (attempt %d)...", attempt+1)
	}
	r.Report(models.ProgressUpdate{
		Stage:   models.ProgressStageGeneratingScenario,
		Percent: 10, //nolint:mnd // fixed stage percent
		Message: message,
	})
}

func ScenarioComplete(r Reporter) {
	r.Report(models.ProgressUpdate{
		Stage:   models.ProgressStageScenarioComplete,
		Percent: 40, //nolint:mnd // fixed stage percent
		Message: "Case written, preparing the characters...",
	})
}

func GeneratingPersonas(r Reporter, total int) {
	r.Report(models.ProgressUpdate{
		Stage:         models.ProgressStageGeneratingPersonas,
		Percent:       personasStartPercent,
		Message:       fmt.Sprintf("Preparing %d characters...", total),
		TotalPersonas: &total,
	})
}

// PersonaComplete reports persona index (zero based) of total. The percent moves from 45 to 80.
func PersonaComplete(r Reporter, name string, index, total int) {
	percent := personasStartPercent
	if total > 0 {
		percent += personasSpanPercent * (index + 1) / total
	}
	r.Report(models.ProgressUpdate{
		Stage:         models.ProgressStagePersonaComplete,
		Percent:       percent,
		Message:       fmt.Sprintf("Character '%s' ready (%d/%d)", name, index+1, total),
		PersonaName:   name,
		PersonaIndex:  &index,
		TotalPersonas: &total,
	})
}

func InitializingGame(r Reporter) {
	r.Report(models.ProgressUpdate{
		Stage:   models.ProgressStageInitializingGame,
		Percent: 95, //nolint:mnd // fixed stage percent
		Message: "Initializing the game...",
	})
}

func Complete(r Reporter) {
	r.Report(models.ProgressUpdate{
		Stage:   models.ProgressStageComplete,
		Percent: 100, //nolint:mnd // fixed stage percent
		Message: "Generation complete!",
	})
}

func Error(r Reporter, err error) {
	r.Report(models.ProgressUpdate{
		Stage:   models.ProgressStageError,
		Percent: 0,
		Message: "Error: " + err.Error(),
	})
}
