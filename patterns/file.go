package patterns

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

var reflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

// Schema describes the pattern files accepted by Load.
func Schema() *jsonschema.Schema {
	return reflector.Reflect([]Pattern{})
}

// Load reads a JSON array of patterns and registers them in order. Either
// all patterns are registered or, when one is invalid, none.
func Load(r io.Reader) ([]string, error) {
	var loaded []Pattern
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&loaded); err != nil {
		return nil, fmt.Errorf("%w: decoding patterns: %w", ErrInvalidPattern, err)
	}

	for _, p := range loaded {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, _, err := p.Instructions(); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(loaded))
	for _, p := range loaded {
		if err := Register(p); err != nil {
			return names, err
		}
		names = append(names, p.Name)
	}
	return names, nil
}

// LoadFile loads the patterns in the named file.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
