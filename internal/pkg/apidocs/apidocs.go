package apidocs

import (
	"context"
	"fmt"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
)

// Candidates lists where docs/openapi.yml is found relative to the working
// directory of the server, the tools and the package tests.
var Candidates = []string{
	"docs/openapi.yml",
	"../../docs/openapi.yml",
	"../../../docs/openapi.yml",
}

// Locate returns the first existing OpenAPI document path, or "".
func Locate() string {
	for _, p := range Candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load parses and validates the OpenAPI document at path.
func Load(ctx context.Context, path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}
