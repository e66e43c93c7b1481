package descriptor

import (
	"bytes"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaDocument string

const schemaURL = "https://mcm.invalid/meta-package.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(schemaURL, strings.NewReader(schemaDocument)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// validateDocument checks a decoded TOML document against the schema and
// returns the JSON-shaped value it validated.
func validateDocument(doc map[string]any) (map[string]any, []string, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, nil, fmt.Errorf("compile descriptor schema: %w", err)
	}

	// The validator expects encoding/json shapes; TOML integers and dates
	// are normalized by a JSON round trip.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, nil, err
	}

	if verr := sch.Validate(value); verr != nil {
		var ve *jsonschema.ValidationError
		if stderrors.As(verr, &ve) {
			return nil, reasons(ve), verr
		}
		return nil, nil, verr
	}
	m, _ := value.(map[string]any)
	return m, nil, nil
}

// reasons flattens the leaf causes of a validation error into stable,
// human-readable lines.
func reasons(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}
