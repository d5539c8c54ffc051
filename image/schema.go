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

package image

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaID is the published identifier of the image config schema.
const SchemaID = "https://github.com/colbylwilliams/devbox-images/schema/image.json"

// Schema reflects the JSON schema for image.yaml files. Additional
// properties are allowed because unknown keys are passed to packer.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}

	schema := reflector.Reflect(&ImageDefinition{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Dev Box Image"
	schema.Description = "Schema for image.yaml files describing a gallery image to build"
	schema.Examples = []any{
		map[string]any{
			"publisher":        "Contoso",
			"offer":            "DevBox",
			"sku":              "vscode",
			"version":          "1.0.0",
			"os":               "Windows",
			"replicaLocations": []string{"eastus", "westeurope"},
			"builder":          "packer",
		},
	}
	return schema
}

// SchemaJSON renders Schema as indented JSON with a trailing newline.
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
