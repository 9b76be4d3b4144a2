// Package yamlload adapts runbook YAML files into the runbook.Runbook data
// model, validating the raw document against an embedded JSON Schema before
// decoding so structural mistakes are reported with field-level detail.
package yamlload

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/runbook"
)

//go:embed schema.json
var schemaDoc []byte

var compiledSchema *jsonschema.Schema

func init() {
	var doc any
	if err := json.Unmarshal(schemaDoc, &doc); err != nil {
		panic(fmt.Sprintf("yamlload: embedded schema is invalid JSON: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("runbook.json", doc); err != nil {
		panic(fmt.Sprintf("yamlload: add schema resource: %v", err))
	}
	schema, err := c.Compile("runbook.json")
	if err != nil {
		panic(fmt.Sprintf("yamlload: compile schema: %v", err))
	}
	compiledSchema = schema
}

// rawArtifact mirrors the on-disk artifact shape before normalisation into
// runbook.ArtifactDefinition.
type rawArtifact struct {
	Source *struct {
		Type       string         `yaml:"type"`
		Properties map[string]any `yaml:"properties"`
	} `yaml:"source"`
	Inputs  any `yaml:"inputs"`
	Process *struct {
		Type       string         `yaml:"type"`
		Properties map[string]any `yaml:"properties"`
	} `yaml:"process"`
	Optional bool `yaml:"optional"`
	Output   bool `yaml:"output"`
}

type rawRunbook struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Config      *rawConfig             `yaml:"config"`
	Artifacts   map[string]rawArtifact `yaml:"artifacts"`
	Aliases     map[string]string      `yaml:"aliases"`
}

type rawConfig struct {
	MaxConcurrency int     `yaml:"maxConcurrency"`
	Timeout        float64 `yaml:"timeout"`
}

// Load parses, validates, and normalises a runbook YAML document into a
// runbook.Runbook. Defaults from runbook.WithDefaults are applied.
func Load(data []byte) (*runbook.Runbook, error) {
	if err := validateAgainstSchema(data); err != nil {
		return nil, err
	}

	var raw rawRunbook
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, rerrors.Wrap(rerrors.ConfigurationError, "parse runbook yaml", err)
	}

	rb := runbook.Runbook{
		Name:        raw.Name,
		Description: raw.Description,
		Artifacts:   make(map[string]runbook.ArtifactDefinition, len(raw.Artifacts)),
		Aliases:     raw.Aliases,
	}
	if raw.Config != nil {
		rb.Config = runbook.Config{MaxConcurrency: raw.Config.MaxConcurrency, Timeout: raw.Config.Timeout}
	}

	for id, a := range raw.Artifacts {
		def := runbook.ArtifactDefinition{Optional: a.Optional, Output: a.Output}
		if a.Source != nil {
			def.Source = &runbook.SourceConfig{Type: a.Source.Type, Properties: a.Source.Properties}
		}
		if a.Process != nil {
			def.Process = &runbook.ProcessConfig{Type: a.Process.Type, Properties: a.Process.Properties}
		}
		inputs, err := normaliseInputs(a.Inputs)
		if err != nil {
			return nil, rerrors.Wrap(rerrors.ConfigurationError, fmt.Sprintf("artifact %q inputs", id), err)
		}
		def.Inputs = inputs
		if def.Source != nil && def.Inputs != nil {
			return nil, rerrors.Newf(rerrors.ConfigurationError, "artifact %q has both source and inputs", id)
		}
		if def.Source == nil && def.Inputs == nil {
			return nil, rerrors.Newf(rerrors.ConfigurationError, "artifact %q has neither source nor inputs", id)
		}
		rb.Artifacts[id] = def
	}

	normalised := rb.WithDefaults()
	return &normalised, nil
}

func normaliseInputs(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("inputs list entries must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("inputs must be a string or list of strings, got %T", raw)
	}
}

func validateAgainstSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return rerrors.Wrap(rerrors.ConfigurationError, "parse runbook yaml", err)
	}
	// jsonschema validates generic Go values decoded via encoding/json
	// conventions (map[string]any, []any, ...); round-trip through JSON to
	// normalise yaml.v3's map[string]any / map[any]any quirks.
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return rerrors.Wrap(rerrors.ConfigurationError, "normalise runbook document", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(jsonBytes, &jsonDoc); err != nil {
		return rerrors.Wrap(rerrors.ConfigurationError, "normalise runbook document", err)
	}
	if err := compiledSchema.Validate(jsonDoc); err != nil {
		return rerrors.Wrap(rerrors.ConfigurationError, "runbook does not match schema", err)
	}
	return nil
}
