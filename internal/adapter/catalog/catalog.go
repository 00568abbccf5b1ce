package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/guillermoBallester/estuary/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Catalog holds operator-maintained table metadata loaded from a YAML file.
// It fills in what the SQL text itself cannot know, such as the schema a
// table lives in. Implements port.GraphAnnotator.
type Catalog struct {
	Tables map[string]TableEntry `yaml:"tables"`
}

// TableEntry describes one table, keyed by its unqualified lowercase name.
type TableEntry struct {
	Schema      string `yaml:"schema"`
	Description string `yaml:"description"`
}

// LoadFromFile reads and validates a YAML catalog file.
func LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}

	if err := validate(&cat); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	// Lookups are by lowercase table name; normalize the keys once.
	normalized := make(map[string]TableEntry, len(cat.Tables))
	for name, entry := range cat.Tables {
		normalized[strings.ToLower(name)] = entry
	}
	cat.Tables = normalized

	return &cat, nil
}

func validate(cat *Catalog) error {
	for name := range cat.Tables {
		if name == "" {
			return fmt.Errorf("tables contains an empty key")
		}
	}
	return nil
}

// Annotate fills the Schema of table nodes the extraction left unqualified.
// Schemas present in the SQL always win over the catalog.
func (c *Catalog) Annotate(graph *domain.LineageGraph) {
	if graph == nil || len(c.Tables) == 0 {
		return
	}
	for i := range graph.Nodes {
		n := &graph.Nodes[i]
		if n.Kind != domain.NodeTable || n.Schema != "" {
			continue
		}
		if entry, ok := c.Tables[strings.ToLower(n.Name)]; ok {
			n.Schema = entry.Schema
		}
	}
}

// Describe returns the operator-provided description of a table, if any.
func (c *Catalog) Describe(table string) (string, bool) {
	entry, ok := c.Tables[strings.ToLower(table)]
	if !ok || entry.Description == "" {
		return "", false
	}
	return entry.Description, true
}
