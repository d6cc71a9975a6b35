package scenario_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/sheerluck-engine/internal/ai"
	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/myrjola/sheerluck-engine/internal/scenario"
	"github.com/myrjola/sheerluck-engine/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// generatedCase returns a backend answer with personaCount personas.
func generatedCase(t *testing.T, personaCount int) string {
	t.Helper()
	c := models.Case{
		Name:            "The Lighthouse Case",
		Setting:         "The old lighthouse on Hiddensee. A storm has cut the island off.",
		Victim:          models.Victim{Name: "Greta Lind", Role: "Keeper", Description: "Stern."},
		SharedKnowledge: "Greta was found at the bottom of the stairs.",
		Timeline:        "- 20:00 dinner\n- 22:00 - 23:30 the lamp went dark\n- 07:00 body found",
		IntroMessage:    "Welcome, detective.",
		Solution:        models.Solution{CulpritID: "p1", Motive: "Money", Weapon: "Lamp", CriticalClues: nil},
	}
	for i := range personaCount {
		id := fmt.Sprintf("p%d", i+1)
		c.Personas = append(c.Personas, models.Persona{
			ID:                id,
			Name:              fmt.Sprintf("Person %d", i+1),
			Role:              "Guest",
			PublicDescription: "A guest.",
			Personality:       "You speak briefly.",
			PrivateKnowledge:  "You saw the lamp go dark.",
			KnowsAboutOthers:  "",
		})
		c.Clues = append(c.Clues, models.Clue{ID: "", PersonaID: id, Text: "A clue.", Keywords: []string{"lamp"}})
	}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	return string(b)
}

type recorder struct {
	updates []models.ProgressUpdate
}

func (r *recorder) Report(update models.ProgressUpdate) {
	r.updates = append(r.updates, update)
}

func (r *recorder) stages() []models.ProgressStage {
	var stages []models.ProgressStage
	for _, u := range r.updates {
		stages = append(stages, u.Stage)
	}
	return stages
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)

	t.Run("empty premise medium difficulty", func(t *testing.T) {
		completer := testhelpers.NewScriptedCompleter().Push(ai.PurposeScenario, "```json\n"+generatedCase(t, 4)+"\n```")
		r := &recorder{}
		c, err := scenario.NewGenerator(completer, logger).Generate(ctx, "", models.DifficultyMedium, r)
		require.NoError(t, err)

		require.NotEmpty(t, c.ID)
		require.Equal(t, models.DifficultyMedium, c.Difficulty)
		require.GreaterOrEqual(t, len(c.Personas), models.MinPersonas)
		for _, p := range c.Personas {
			require.NotEmpty(t, p.Name)
			require.NotEmpty(t, p.Role)
			require.NotEmpty(t, p.PrivateKnowledge)
		}
		require.Equal(t, "The old lighthouse on Hiddensee", c.Location)
		require.Equal(t, "Estimated: 22:00 - 23:30", c.TimeOfIncident)
		for _, clue := range c.Clues {
			require.NotEmpty(t, clue.ID)
		}

		requests := completer.Requests(ai.PurposeScenario)
		require.Len(t, requests, 1)
		require.True(t, requests[0].JSON)
		require.Contains(t, requests[0].Messages[1].Content, "Surprise me")
		require.Contains(t, requests[0].Messages[1].Content, "Difficulty: medium")

		require.Equal(t, []models.ProgressStage{
			models.ProgressStageStarted,
			models.ProgressStageGeneratingScenario,
			models.ProgressStageScenarioComplete,
			models.ProgressStageGeneratingPersonas,
			models.ProgressStagePersonaComplete,
			models.ProgressStagePersonaComplete,
			models.ProgressStagePersonaComplete,
			models.ProgressStagePersonaComplete,
		}, r.stages())
	})

	t.Run("short roster is retried with feedback", func(t *testing.T) {
		completer := testhelpers.NewScriptedCompleter().
			Push(ai.PurposeScenario, generatedCase(t, 3), generatedCase(t, 5))
		c, err := scenario.NewGenerator(completer, logger).Generate(ctx, "A lighthouse", "unknown", nil)
		require.NoError(t, err)
		require.Len(t, c.Personas, 5)
		require.Equal(t, models.DifficultyMedium, c.Difficulty)

		requests := completer.Requests(ai.PurposeScenario)
		require.Len(t, requests, 2)
		require.NotContains(t, requests[0].Messages[1].Content, "previous attempt failed")
		require.Contains(t, requests[1].Messages[1].Content,
			"previous attempt failed: only 3 personas returned, at least 4 are required")
		require.Contains(t, requests[1].Messages[1].Content, "A lighthouse")
	})

	t.Run("fails after retries are exhausted", func(t *testing.T) {
		completer := testhelpers.NewScriptedCompleter().
			Push(ai.PurposeScenario, generatedCase(t, 2), "not json at all", generatedCase(t, 3))
		r := &recorder{}
		c, err := scenario.NewGenerator(completer, logger).Generate(ctx, "", models.DifficultyHard, r)
		require.ErrorIs(t, err, scenario.ErrGenerationValidation)
		require.Nil(t, c)
		require.Contains(t, err.Error(), "only 3 personas")
		require.Len(t, completer.Requests(ai.PurposeScenario), 1+scenario.DefaultMaxRetries)
		require.Equal(t, models.ProgressStageError, r.stages()[len(r.stages())-1])
	})

	t.Run("upstream failure is not retried", func(t *testing.T) {
		completer := testhelpers.NewScriptedCompleter().PushErr(ai.PurposeScenario, ai.ErrUpstreamUnavailable)
		_, err := scenario.NewGenerator(completer, logger).Generate(ctx, "", models.DifficultyEasy, nil)
		require.ErrorIs(t, err, ai.ErrUpstreamUnavailable)
		require.NotErrorIs(t, err, scenario.ErrGenerationValidation)
		require.Len(t, completer.Requests(ai.PurposeScenario), 1)
	})
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *models.Case {
		t.Helper()
		c, err := scenario.Parse(generatedCase(t, 4))
		require.NoError(t, err)
		return c
	}

	tests := []struct {
		name   string
		mutate func(c *models.Case)
		want   string
	}{
		{name: "valid", mutate: func(*models.Case) {}, want: ""},
		{name: "missing victim", mutate: func(c *models.Case) { c.Victim.Name = "" }, want: "missing victim name"},
		{
			name:   "duplicate persona",
			mutate: func(c *models.Case) { c.Personas[1].ID = "p1" },
			want:   `duplicate persona id "p1"`,
		},
		{
			name:   "culprit not in roster",
			mutate: func(c *models.Case) { c.Solution.CulpritID = "nobody" },
			want:   `culprit "nobody" is not one of the personas`,
		},
		{
			name:   "persona without private knowledge",
			mutate: func(c *models.Case) { c.Personas[2].PrivateKnowledge = " " },
			want:   `missing persona "p3" private_knowledge`,
		},
		{
			name:   "clue without keywords",
			mutate: func(c *models.Case) { c.Clues[0].Keywords = []string{""} },
			want:   "clue 1 has no keywords",
		},
		{
			name:   "clue with unknown owner",
			mutate: func(c *models.Case) { c.Clues[0].PersonaID = "ghost" },
			want:   `clue 1 belongs to unknown persona "ghost"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid(t)
			tt.mutate(c)
			err := scenario.Validate(c)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLocationAndTime(t *testing.T) {
	require.Equal(t, "Villa Sonnenhof on Lake Starnberg",
		scenario.LocationFromSetting("Villa Sonnenhof on Lake Starnberg. It is remote.\nMore."))
	require.Equal(t, "Unknown location", scenario.LocationFromSetting("  "))
	require.Len(t, []rune(scenario.LocationFromSetting(strings.Repeat("ä", 200))), 80)

	require.Equal(t, "Friday 9:30 PM - 11:00 PM: Estimated time of death",
		scenario.TimeFromTimeline("- Friday 7:00 PM: Dinner\n- Friday 9:30 PM - 11:00 PM: Estimated time of death"))
	require.Equal(t, "Estimated: 21:30-23:00", scenario.TimeFromTimeline("Dinner at 19:00\nThe crime 21:30-23:00"))
	require.Equal(t, "Time unknown", scenario.TimeFromTimeline("nothing here"))
}

func TestQuickStart(t *testing.T) {
	first, err := scenario.QuickStart()
	require.NoError(t, err)
	second, err := scenario.QuickStart()
	require.NoError(t, err)

	require.Empty(t, cmp.Diff(first, second), "quick-start is not deterministic")
	require.NotSame(t, first, second)

	require.Equal(t, scenario.CanonicalCaseID, first.ID)
	require.Equal(t, "The Villa Sonnenhof Case", first.Name)
	require.Equal(t, "Dr. Claudia von Lichtenberg", first.Victim.Name)
	require.Len(t, first.Personas, 4)
	require.Equal(t, "robert", first.Solution.CulpritID)
	require.NoError(t, scenario.Validate(first))

	alibi := first.CluesFor("robert")[0]
	require.Equal(t, "robert-alibi", alibi.ID)
	require.Contains(t, alibi.Keywords, "9 pm")
}
