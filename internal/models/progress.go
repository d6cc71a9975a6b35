package models

type ProgressStage string

const (
	ProgressStageStarted            ProgressStage = "started"
	ProgressStageGeneratingScenario ProgressStage = "generating_scenario"
	ProgressStageScenarioComplete   ProgressStage = "scenario_complete"
	ProgressStageGeneratingPersonas ProgressStage = "generating_personas"
	ProgressStagePersonaComplete    ProgressStage = "persona_complete"
	ProgressStageInitializingGame   ProgressStage = "initializing_game"
	ProgressStageComplete           ProgressStage = "complete"
	ProgressStageError              ProgressStage = "error"
)

// ProgressUpdate is advisory telemetry about a running scenario generation.
type ProgressUpdate struct {
	ProgressID    string        `json:"progress_id"`
	Stage         ProgressStage `json:"stage"`
	Percent       int           `json:"progress"`
	Message       string        `json:"message"`
	PersonaName   string        `json:"persona_name,omitempty"`
	PersonaIndex  *int          `json:"persona_index,omitempty"`
	TotalPersonas *int          `json:"total_personas,omitempty"`
}
