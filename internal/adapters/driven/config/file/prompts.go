package file

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
	"github.com/custodia-labs/htp-rag/internal/core/ports/driven"
)

// Ensure PromptCatalog implements the interface.
var _ driven.PromptCatalog = (*PromptCatalog)(nil)

//go:embed prompts/htp_prompts.yaml
var defaultCatalog []byte

// RequiredPrompts are the templates every catalog must define.
var RequiredPrompts = []string{
	domain.NodeRelevanceCheck,
	domain.NodeDecomposeQuery,
	domain.NodeGenerateAnswer,
	domain.NodeHallucinationCheck,
}

// placeholder matches an escaped brace pair or a {name} variable.
var placeholder = regexp.MustCompile(`\{\{|\}\}|\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// PromptCatalog holds the workflow templates loaded from YAML.
// It is read-only after construction.
type PromptCatalog struct {
	source    string
	templates map[string]string
}

// LoadPromptCatalog reads a YAML mapping of template name to template text.
// An empty path loads the compiled-in catalog.
func LoadPromptCatalog(path string) (*PromptCatalog, error) {
	if path == "" {
		return parseCatalog(defaultCatalog, "embedded")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: prompt catalog %s not found", domain.ErrConfig, path)
		}
		return nil, fmt.Errorf("%w: read prompt catalog: %v", domain.ErrConfig, err)
	}
	return parseCatalog(data, path)
}

// DefaultPromptCatalog returns the compiled-in catalog.
func DefaultPromptCatalog() []byte {
	out := make([]byte, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

func parseCatalog(data []byte, source string) (*PromptCatalog, error) {
	var templates map[string]string
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("%w: parse prompt catalog %s: %v", domain.ErrConfig, source, err)
	}

	var missing []string
	for _, name := range RequiredPrompts {
		if strings.TrimSpace(templates[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: prompt catalog %s missing %s",
			domain.ErrConfig, source, strings.Join(missing, ", "))
	}

	return &PromptCatalog{source: source, templates: templates}, nil
}

// Render substitutes {placeholder} variables in the named template.
func (c *PromptCatalog) Render(name string, vars map[string]string) (string, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown template %q", domain.ErrTemplate, name)
	}

	var missing string
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		switch m {
		case "{{":
			return "{"
		case "}}":
			return "}"
		}
		key := m[1 : len(m)-1]
		val, ok := vars[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return m
		}
		return val
	})
	if missing != "" {
		return "", fmt.Errorf("%w: template %q needs {%s}", domain.ErrTemplate, name, missing)
	}
	return out, nil
}

// Template returns the raw template text.
func (c *PromptCatalog) Template(name string) (string, bool) {
	tmpl, ok := c.templates[name]
	return tmpl, ok
}

// Names lists the templates in the catalog, sorted.
func (c *PromptCatalog) Names() []string {
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source describes where the catalog was loaded from.
func (c *PromptCatalog) Source() string {
	return c.source
}

// MarshalYAML writes the catalog back out in the format LoadPromptCatalog reads.
func (c *PromptCatalog) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range c.Names() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.templates[name], Style: yaml.LiteralStyle},
		)
	}
	return node, nil
}
