// Package strategyparams checks strategy parameter documents against a JSON
// Schema per strategy type.
package strategyparams

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stockdash/internal/logger"
	"stockdash/internal/model"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// TypeMACrossover is the moving average crossover strategy the backend
// screens and backtests with.
const TypeMACrossover = "ma_crossover"

var builtinSchemas = map[string]Type{
	TypeMACrossover: {
		ID:          TypeMACrossover,
		Description: "short/long simple moving average crossover",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"short_window": map[string]any{"type": "integer", "minimum": 1},
				"long_window":  map[string]any{"type": "integer", "minimum": 1},
			},
			"additionalProperties": false,
		},
	},
}

// Type describes the parameters one strategy type accepts.
type Type struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description"`
	Schema      map[string]any `yaml:"schema"`

	compiled *jsonschema.Schema
}

// FileConfig maps the optional schema file.
type FileConfig struct {
	StrategyTypes map[string]Type `yaml:"strategy_types"`
}

// Validator is immutable after New and safe for concurrent use.
type Validator struct {
	types map[string]Type
}

// New returns a validator with the built-in types, overridden and extended by
// schemaPath when it is set.
func New(schemaPath string) (*Validator, error) {
	types := make(map[string]Type, len(builtinSchemas))
	for id, tpl := range builtinSchemas {
		norm, err := normalizeType(id, tpl)
		if err != nil {
			return nil, err
		}
		types[id] = norm
	}
	if path := strings.TrimSpace(schemaPath); path != "" {
		cfg, err := readSchemaFile(path)
		if err != nil {
			return nil, err
		}
		for name, tpl := range cfg.StrategyTypes {
			norm, err := normalizeType(name, tpl)
			if err != nil {
				return nil, err
			}
			types[norm.ID] = norm
		}
		logger.Infof("strategy params: loaded %d types from %s", len(cfg.StrategyTypes), filepath.Base(path))
	}
	return &Validator{types: types}, nil
}

// Types lists the known strategy types in name order.
func (v *Validator) Types() []string {
	out := make([]string, 0, len(v.types))
	for id := range v.types {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Validate checks paramsJSON against the schema of typ. An empty document is
// treated as {}. Types without a schema accept any JSON object.
func (v *Validator) Validate(typ, paramsJSON string) error {
	raw := strings.TrimSpace(paramsJSON)
	if raw == "" {
		raw = "{}"
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("params are not valid JSON: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return errors.New("params must be a JSON object")
	}
	tpl, ok := v.types[strings.TrimSpace(typ)]
	if !ok || tpl.compiled == nil {
		return nil
	}
	if err := tpl.compiled.Validate(doc); err != nil {
		return fmt.Errorf("params for %s: %w", tpl.ID, err)
	}
	return nil
}

// Normalize fills in the defaults the backend applies for typ and returns the
// params in compact form. Types without known defaults are returned as is.
// Call it after Validate.
func Normalize(typ, paramsJSON string) (string, error) {
	if strings.TrimSpace(typ) != TypeMACrossover {
		return paramsJSON, nil
	}
	var p model.MACrossoverParams
	if raw := strings.TrimSpace(paramsJSON); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return "", fmt.Errorf("params for %s: %w", TypeMACrossover, err)
		}
	}
	out, err := json.Marshal(p.Normalize())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func normalizeType(name string, tpl Type) (Type, error) {
	tpl.ID = strings.TrimSpace(tpl.ID)
	if tpl.ID == "" {
		tpl.ID = strings.TrimSpace(name)
	}
	tpl.Description = strings.TrimSpace(tpl.Description)
	if len(tpl.Schema) == 0 {
		return tpl, nil
	}
	compiled, err := compileSchema(tpl.ID, tpl.Schema)
	if err != nil {
		return Type{}, fmt.Errorf("compile schema %s: %w", tpl.ID, err)
	}
	tpl.compiled = compiled
	return tpl, nil
}

func compileSchema(id string, data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	url := id + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

func readSchemaFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read strategy schema file: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse strategy schema file: %w", err)
	}
	return cfg, nil
}

// LoadParamsFile reads a YAML or JSON params document and returns it as
// compact JSON, the form the backend stores.
func LoadParamsFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read params file: %w", err)
	}
	var doc map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return "", fmt.Errorf("parse params yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return "", fmt.Errorf("parse params json: %w", err)
		}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
