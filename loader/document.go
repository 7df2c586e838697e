package loader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/netquest/types"
)

// Document is the content of one YAML or JSON file.
type Document struct {
	Quests []types.QuestDefinition `json:"quests,omitempty" yaml:"quests,omitempty"`
	Mail   []types.MailDefinition  `json:"mail,omitempty" yaml:"mail,omitempty"`
}

//go:embed schema/corpus.schema.json
var schemaJSON []byte

const schemaURL = "https://netquest.dev/schema/corpus.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func corpusSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// ParseJSON decodes a JSON content file after validating it against the
// embedded content schema.
func ParseJSON(data []byte) (*Document, error) {
	s, err := corpusSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling content schema: %w", err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	if err := s.Validate(raw); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	return &doc, nil
}

// ParseYAML decodes a YAML content file. Unknown fields are errors.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	return &doc, nil
}

// MarshalYAML encodes a document as YAML.
func MarshalYAML(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
