package driven

// PromptCatalog provides the prompt templates of the workflow.
// A catalog is loaded once and never changes afterwards, so it is safe to
// share between concurrent runs.
type PromptCatalog interface {
	// Render substitutes {placeholder} variables in the named template.
	// An unknown name or a placeholder without a value is domain.ErrTemplate.
	Render(name string, vars map[string]string) (string, error)

	// Template returns the raw template text.
	Template(name string) (string, bool)

	// Names lists the templates in the catalog, sorted.
	Names() []string
}

// Placeholder names understood by the workflow templates.
const (
	// VarQuestion is the original question or a sub-question.
	VarQuestion = "question"

	// VarContext is the retrieved passages joined by blank lines.
	VarContext = "context"

	// VarGeneration is the candidate answer under review.
	VarGeneration = "generation"
)
