package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema string

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	// parse schema
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	// convert config to JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var configMap map[string]interface{}
	if err := json.Unmarshal(configData, &configMap); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if err := checkSections(schema, configMap); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// basic validation - check required fields match
	if err := validateRequiredFields(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// checkSections makes sure every top-level section of the config is known to the schema
func checkSections(schema, configMap map[string]interface{}) error {
	props := schemaProperties(schema)
	if props == nil {
		return fmt.Errorf("schema has no config properties")
	}
	for key := range configMap {
		if _, ok := props[key]; !ok {
			return fmt.Errorf("section %q missing from schema", key)
		}
	}
	return nil
}

// schemaProperties finds the Config properties, either inline or under $defs
func schemaProperties(schema map[string]interface{}) map[string]interface{} {
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		return props
	}
	defs, ok := schema["$defs"].(map[string]interface{})
	if !ok {
		return nil
	}
	cfgDef, ok := defs["Config"].(map[string]interface{})
	if !ok {
		return nil
	}
	props, _ := cfgDef["properties"].(map[string]interface{})
	return props
}

// validateRequiredFields performs basic validation of required fields
func validateRequiredFields(cfg *Config) error {
	if cfg.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required")
	}
	if cfg.Arxiv.APIURL == "" {
		return fmt.Errorf("arxiv.api_url is required")
	}
	if cfg.Arxiv.SourceURL == "" {
		return fmt.Errorf("arxiv.source_url is required")
	}
	if !slices.Contains([]string{BackendCLI, BackendOpenAI}, cfg.Assistant.Backend) {
		return fmt.Errorf("assistant.backend must be one of cli, openai")
	}
	if cfg.Assistant.Backend == BackendCLI && cfg.Assistant.Command == "" {
		return fmt.Errorf("assistant.command is required for cli backend")
	}
	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if cfg.Server.Timeout == 0 {
		return fmt.Errorf("server.timeout is required")
	}
	return nil
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() (*jsonschema.Schema, error) {
	return jsonschema.Reflect(&Config{}), nil
}
