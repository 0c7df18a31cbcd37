package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

var (
	askCategory string
	askJSON     bool
	askTrace    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Interpret an observation about a drawing",
	Long: `Interprets an observation about a House-Tree-Person drawing.

The question is read from the argument, or from stdin when no argument
is given and stdin is not a terminal. Questions unrelated to the drawing
are answered with a request to re-enter the observation.

Categories: HOME, TREE, PERSON1, PERSON2.`,
	Example: `  htp ask --category HOME "창문이 매우 크게 그려져 있어요"
  echo "뿌리가 강조되어 있어요" | htp ask -c TREE --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askCategory, "category", "c", "", "drawing category (HOME, TREE, PERSON1, PERSON2)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().BoolVar(&askTrace, "trace", false, "show the workflow steps, sub-questions and passages")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question, err := readQuestion(cmd, args)
	if err != nil {
		return err
	}

	svc, err := requireAnalysis(cmd.Context())
	if err != nil {
		return err
	}

	req := domain.AnalysisRequest{Question: question, Category: askCategory}

	if askTrace {
		state, err := svc.Trace(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
		return outputTrace(cmd, state)
	}

	resp, err := svc.Analyze(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if askJSON {
		return outputJSON(cmd, resp)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Answer)
	return nil
}

// readQuestion takes the question from args or from piped stdin.
func readQuestion(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("question is required: pass it as an argument or pipe it on stdin")
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading question: %w", err)
	}
	question := strings.TrimSpace(string(data))
	if question == "" {
		return "", errors.New("question is required: pass it as an argument or pipe it on stdin")
	}
	return question, nil
}

// traceOutput is the JSON form of a finished run.
type traceOutput struct {
	RunID               string   `json:"run_id"`
	Category            string   `json:"category"`
	Question            string   `json:"question"`
	Steps               []string `json:"steps"`
	DecomposedQuestions []string `json:"decomposed_questions"`
	RetrievedContexts   []string `json:"retrieved_contexts"`
	Relevance           string   `json:"relevance"`
	Hallucination       string   `json:"hallucination"`
	Answer              string   `json:"answer"`
}

func newTraceOutput(state *domain.WorkflowState) traceOutput {
	answer := state.Generation
	if state.Rejected() {
		answer = domain.FallbackAnswer
	}
	return traceOutput{
		RunID:               state.RunID,
		Category:            state.Category.String(),
		Question:            state.OriginalQuestion,
		Steps:               state.Steps,
		DecomposedQuestions: state.DecomposedQuestions,
		RetrievedContexts:   state.RetrievedContexts,
		Relevance:           state.RelevanceCheck.String(),
		Hallucination:       state.HallucinationCheck.String(),
		Answer:              answer,
	}
}

func outputTrace(cmd *cobra.Command, state *domain.WorkflowState) error {
	out := newTraceOutput(state)
	if askJSON {
		return outputJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run: %s\n", out.RunID)
	fmt.Fprintf(w, "Steps: %s\n", strings.Join(out.Steps, " -> "))
	fmt.Fprintf(w, "Relevance: %s\n", out.Relevance)
	if len(out.DecomposedQuestions) > 0 {
		fmt.Fprintln(w, "Sub-questions:")
		for i, q := range out.DecomposedQuestions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, q)
		}
	}
	if len(out.RetrievedContexts) > 0 {
		fmt.Fprintf(w, "Passages (%d):\n", len(out.RetrievedContexts))
		for i, p := range out.RetrievedContexts {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, truncate(p, 80))
		}
	}
	fmt.Fprintf(w, "Hallucination: %s\n", out.Hallucination)
	fmt.Fprintln(w)
	fmt.Fprintln(w, out.Answer)
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// truncate collapses whitespace and shortens s to at most n runes.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
