package game

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/models"
	"github.com/spf13/cobra"
)

func init() {
	generate.Flags().String("difficulty", string(models.DifficultyMedium), "easy, medium or hard")
	list.Flags().Int("limit", 20, "maximum number of cases to list") //nolint:mnd // sensible page size
	Scenario.AddCommand(generate, quickStart, solution, list)
}

var Scenario = &cobra.Command{
	Use:     "scenario",
	GroupID: "game",
	Short:   "Generate and inspect cases",
}

// progressPrinter writes generation progress to a terminal.
type progressPrinter struct {
	w io.Writer
}

func (p progressPrinter) Report(update models.ProgressUpdate) {
	_, _ = fmt.Fprintf(p.w, "[%3d%%] %s\n", update.Percent, update.Message)
}

var generate = &cobra.Command{
	Use:   "generate [premise]",
	Short: "Generate a new case",
	Long:  `Generates a new case with the text generation backend. Without a premise the backend picks the story.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		difficulty, err := cmd.Flags().GetString("difficulty")
		if err != nil {
			return errors.Wrap(err, "difficulty flag")
		}
		env, err := newEnvironment(cmd, progressPrinter{w: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}
		defer env.close()

		summary, err := env.engine.GenerateScenario(cmd.Context(), strings.Join(args, " "),
			models.ParseDifficulty(difficulty), uuid.NewString())
		if err != nil {
			return errors.Wrap(err, "generate scenario")
		}
		printSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

var quickStart = &cobra.Command{
	Use:   "quickstart",
	Short: "Store and show the built-in case",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := newEnvironment(cmd, nil)
		if err != nil {
			return err
		}
		defer env.close()

		summary, err := env.engine.QuickStart(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "quick-start")
		}
		printSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

var solution = &cobra.Command{
	Use:   "solution <case-id>",
	Short: "Reveal who did it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnvironment(cmd, nil)
		if err != nil {
			return err
		}
		defer env.close()

		s, err := env.engine.Solution(cmd.Context(), args[0])
		if err != nil {
			return errors.Wrap(err, "solution")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(s), "encode solution")
	},
}

var list = &cobra.Command{
	Use:   "list",
	Short: "List stored cases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return errors.Wrap(err, "limit flag")
		}
		env, err := newEnvironment(cmd, nil)
		if err != nil {
			return err
		}
		defer env.close()

		listings, err := env.engine.Cases(cmd.Context(), limit)
		if err != nil {
			return errors.Wrap(err, "list cases")
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding
		_, _ = fmt.Fprintln(tw, "ID\tNAME\tDIFFICULTY\tCREATED")
		for _, l := range listings {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.ID, l.Name, l.Difficulty, l.Created)
		}
		return errors.Wrap(tw.Flush(), "flush table")
	},
}

func printSummary(w io.Writer, s models.Summary) {
	_, _ = fmt.Fprintf(w, "%s (case %s)\n\n", s.Name, s.CaseID)
	_, _ = fmt.Fprintf(w, "Victim: %s, %s\n", s.Victim.Name, s.Victim.Role)
	_, _ = fmt.Fprintf(w, "Location: %s\nTime: %s\n\n", s.Location, s.TimeOfIncident)
	_, _ = fmt.Fprintf(w, "%s\n\nSuspects:\n", s.IntroMessage)
	for _, p := range s.Personas {
		_, _ = fmt.Fprintf(w, "  %s %s (%s): %s\n", p.Emoji, p.Name, p.ID, p.Role)
	}
}
