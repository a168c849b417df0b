package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flowc/internal/compiler"
)

// Scenario is one compile scenario.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description documents what the scenario checks.
	Description string `yaml:"description"`

	// Graph is the path of the graph document. Relative paths are resolved
	// against the directory of the scenario file.
	Graph string `yaml:"graph"`

	// Deployment configures the localhost backend.
	Deployment Deployment `yaml:"deployment,omitempty"`

	// Assertions are checked after compiling.
	Assertions []Assertion `yaml:"assertions"`
}

// Deployment configures the localhost backend of a scenario. Zero values
// take the backend defaults; Members defaults to 2.
type Deployment struct {
	Host     string `yaml:"host,omitempty"`
	BasePort int    `yaml:"base_port,omitempty"`
	Members  int    `yaml:"members,omitempty"`
}

// Assertion is a check on the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Codes are the validation codes expected by invalid.
	Codes []string `yaml:"codes,omitempty"`

	// Level is the feedback level expected by warning.
	Level string `yaml:"level,omitempty"`

	// Location names a program, e.g. "cluster(1)".
	Location string `yaml:"location,omitempty"`

	// Text is the substring expected by warning and program_contains.
	Text string `yaml:"text,omitempty"`

	// Count is the number expected by statement_count and network_count.
	Count int `yaml:"count,omitempty"`

	// Shape, Sender and Receiver select a channel.
	Shape    string `yaml:"shape,omitempty"`
	Sender   string `yaml:"sender,omitempty"`
	Receiver string `yaml:"receiver,omitempty"`
}

// Assertion types.
const (
	AssertValid           = "valid"
	AssertInvalid         = "invalid"
	AssertWarning         = "warning"
	AssertProgramContains = "program_contains"
	AssertStatementCount  = "statement_count"
	AssertNetworkCount    = "network_count"
	AssertChannel         = "channel"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Graph != "" && !filepath.IsAbs(scenario.Graph) {
		scenario.Graph = filepath.Join(filepath.Dir(path), scenario.Graph)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Graph == "" {
		return fmt.Errorf("graph is required")
	}
	if _, err := os.Stat(s.Graph); os.IsNotExist(err) {
		return fmt.Errorf("graph file not found: %s", s.Graph)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertValid, AssertNetworkCount:
	case AssertInvalid:
		if len(a.Codes) == 0 {
			return fmt.Errorf("assertions[%d]: codes list is required for invalid", index)
		}
	case AssertWarning:
		if a.Level != compiler.LevelWarning && a.Level != compiler.LevelInfo {
			return fmt.Errorf("assertions[%d]: level must be %q or %q", index, compiler.LevelWarning, compiler.LevelInfo)
		}
	case AssertProgramContains:
		if a.Location == "" || a.Text == "" {
			return fmt.Errorf("assertions[%d]: location and text are required for program_contains", index)
		}
	case AssertStatementCount:
		if a.Location == "" {
			return fmt.Errorf("assertions[%d]: location is required for statement_count", index)
		}
	case AssertChannel:
		if a.Shape == "" || a.Sender == "" || a.Receiver == "" {
			return fmt.Errorf("assertions[%d]: shape, sender and receiver are required for channel", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
