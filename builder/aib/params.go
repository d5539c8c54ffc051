/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package aib

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ParamsFile is the deployment parameters file written into each image
// directory.
const ParamsFile = "image.parameters.json"

// ParamsSchemaURL identifies the deployment parameters format.
const ParamsSchemaURL = "https://schema.management.azure.com/schemas/2019-04-01/deploymentParameters.json#"

// ParamsContentVersion is the content version stamped on parameter files.
const ParamsContentVersion = "1.0.0.0"

//go:embed params.schema.json
var paramsSchemaJSON []byte

var (
	paramsSchemaOnce sync.Once
	paramsSchema     *jsonschema.Schema
	paramsSchemaErr  error
)

func loadParamsSchema() (*jsonschema.Schema, error) {
	paramsSchemaOnce.Do(func() {
		const resource = "https://schema.management.azure.com/schemas/2019-04-01/deploymentParameters.json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(resource, bytes.NewReader(paramsSchemaJSON)); err != nil {
			paramsSchemaErr = err
			return
		}
		paramsSchema, paramsSchemaErr = compiler.Compile(resource)
	})
	return paramsSchema, paramsSchemaErr
}

// Parameter is one deployment parameter.
type Parameter struct {
	Value any `json:"value"`
}

// Parameters is a deployment parameters document.
type Parameters struct {
	Schema         string               `json:"$schema"`
	ContentVersion string               `json:"contentVersion"`
	Parameters     map[string]Parameter `json:"parameters"`
}

// NewParameters returns a parameters document with the given values.
func NewParameters(values map[string]any) Parameters {
	p := Parameters{
		Schema:         ParamsSchemaURL,
		ContentVersion: ParamsContentVersion,
		Parameters:     map[string]Parameter{},
	}
	for k, v := range values {
		p.Parameters[k] = Parameter{Value: v}
	}
	return p
}

// Marshal renders the document with four-space indent and validates it
// against the deployment parameters schema.
func (p Parameters) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode deployment parameters: %w", err)
	}
	data = append(data, '\n')

	if err := ValidateParameters(data); err != nil {
		return nil, err
	}
	return data, nil
}

// ValidateParameters checks a parameters document against the deployment
// parameters schema.
func ValidateParameters(data []byte) error {
	sch, err := loadParamsSchema()
	if err != nil {
		return fmt.Errorf("failed to load deployment parameters schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid deployment parameters: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("invalid deployment parameters: %w", err)
	}
	return nil
}
