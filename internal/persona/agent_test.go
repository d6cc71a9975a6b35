package persona_test

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/myrjola/sheerluck-engine/internal/ai"
	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/myrjola/sheerluck-engine/internal/persona"
	"github.com/myrjola/sheerluck-engine/internal/testhelpers"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func testCase() *models.Case {
	return &models.Case{
		ID:              "case",
		Name:            "The Test Case",
		Victim:          models.Victim{Name: "Victor Victim", Role: "Host", Description: ""},
		Location:        "the library",
		TimeOfIncident:  "22:00",
		SharedKnowledge: "The storm cut the power at ten.",
		Timeline:        "21:00 dinner\n22:00 body found",
		Personas: []models.Persona{
			{ID: "anna", Name: "Anna", Role: "Cook", Personality: "Grumpy.", PrivateKnowledge: "ANNA SECRET"},
			{ID: "ben", Name: "Ben", Role: "Butler", Personality: "Polite.", PrivateKnowledge: "BEN SECRET"},
		},
	}
}

func TestPressure(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{count: 0, want: 0},
		{count: 1, want: 0.1},
		{count: 5, want: 0.5},
		{count: 10, want: 1},
		{count: 25, want: 1},
		{count: -1, want: 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.count), func(t *testing.T) {
			require.InDelta(t, tt.want, persona.Pressure(tt.count), 1e-9)
		})
	}

	previous := 0.0
	for count := range 20 {
		p := persona.Pressure(count)
		require.GreaterOrEqual(t, p, previous)
		previous = p
	}
}

func TestSystemPrompt(t *testing.T) {
	c := testCase()

	tests := []struct {
		name    string
		state   models.PersonaState
		want    []string
		notWant []string
	}{
		{
			name:    "calm",
			state:   models.PersonaState{InterrogationCount: 0, Pressure: 0},
			want:    []string{"You are Anna, Cook", "ANNA SECRET", "The storm cut the power", "21:00 dinner", "Grumpy."},
			notWant: []string{"BEN SECRET", "nervous", "mistakes", "tired"},
		},
		{
			name:    "nervous",
			state:   models.PersonaState{InterrogationCount: 4, Pressure: 0.4},
			want:    []string{"nervous", "40%"},
			notWant: []string{"mistakes", "tired"},
		},
		{
			name:    "breaking",
			state:   models.PersonaState{InterrogationCount: 7, Pressure: 0.7},
			want:    []string{"nervous", "mistakes", "questioned 7 times"},
			notWant: []string{"BEN SECRET"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := persona.SystemPrompt(persona.Turn{
				Case:     c,
				Persona:  &c.Personas[0],
				State:    tt.state,
				History:  nil,
				Question: "",
			})
			for _, s := range tt.want {
				require.Contains(t, prompt, s)
			}
			for _, s := range tt.notWant {
				require.NotContains(t, prompt, s)
			}
		})
	}
}

func TestMessages_historyWindow(t *testing.T) {
	c := testCase()
	var history []models.ChatMessage
	for i := range 14 {
		role := models.ChatRoleUser
		if i%2 == 1 {
			role = models.ChatRoleAssistant
		}
		history = append(history, models.ChatMessage{Role: role, Content: fmt.Sprintf("m%d", i)})
	}

	messages := persona.Messages(persona.Turn{
		Case:     c,
		Persona:  &c.Personas[0],
		State:    models.PersonaState{},
		History:  history,
		Question: "Where were you?",
	})

	require.Len(t, messages, persona.HistoryWindow+2)
	require.Equal(t, openai.ChatMessageRoleSystem, messages[0].Role)
	require.Equal(t, "m4", messages[1].Content)
	require.Equal(t, openai.ChatMessageRoleUser, messages[1].Role)
	require.Equal(t, "m13", messages[len(messages)-2].Content)
	require.Equal(t, openai.ChatMessageRoleAssistant, messages[len(messages)-2].Role)
	require.Equal(t, "Where were you?", messages[len(messages)-1].Content)
}

func TestAgent_Respond(t *testing.T) {
	ctx := context.Background()
	c := testCase()
	turn := persona.Turn{
		Case:     c,
		Persona:  &c.Personas[1],
		State:    models.PersonaState{},
		History:  nil,
		Question: "Did you hear anything?",
	}

	t.Run("reply", func(t *testing.T) {
		completer := testhelpers.NewScriptedCompleter().Push(ai.PurposePersona, "  Only the thunder, sir.  ")
		agent := persona.NewAgent(completer, testhelpers.NewLogger(io.Discard))
		reply, err := agent.Respond(ctx, turn)
		require.NoError(t, err)
		require.Equal(t, "Only the thunder, sir.", reply)

		requests := completer.Requests(ai.PurposePersona)
		require.Len(t, requests, 1)
		require.Contains(t, requests[0].Messages[0].Content, "BEN SECRET")
		require.NotContains(t, requests[0].Messages[0].Content, "ANNA SECRET")
	})

	t.Run("upstream failure", func(t *testing.T) {
		completer := testhelpers.NewScriptedCompleter().PushErr(ai.PurposePersona, ai.ErrUpstreamUnavailable)
		agent := persona.NewAgent(completer, testhelpers.NewLogger(io.Discard))
		_, err := agent.Respond(ctx, turn)
		require.ErrorIs(t, err, ai.ErrUpstreamUnavailable)
		require.Len(t, completer.Requests(ai.PurposePersona), 1, "no retries")
	})

	t.Run("empty reply", func(t *testing.T) {
		completer := testhelpers.NewScriptedCompleter().Push(ai.PurposePersona, "   ")
		agent := persona.NewAgent(completer, testhelpers.NewLogger(io.Discard))
		_, err := agent.Respond(ctx, turn)
		require.ErrorIs(t, err, ai.ErrUpstreamUnavailable)
	})
}
