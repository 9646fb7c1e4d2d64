package fields

import (
	"encoding/json"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

type documentLoader struct{}

// NewDocumentLoader loads static definition documents. JSON and YAML files must hold
// a sequence; the returned definition ignores its context.
func NewDocumentLoader() Loader {
	return documentLoader{}
}

func (documentLoader) Load(path string) (Definition, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition: %w", err)
	}
	data, err := yaml.YAMLToJSON(contents)
	if err != nil {
		return nil, fmt.Errorf("decoding definition: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding definition: %w", err)
	}

	return func(map[string]any) (Group, error) {
		group, ok := FromValue(doc).(Group)
		if !ok {
			return nil, fmt.Errorf("definition must be a sequence, got %T", doc)
		}
		return group, nil
	}, nil
}
