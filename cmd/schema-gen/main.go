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

// Package main writes the JSON schemas for gallery.yaml and image.yaml so
// editors can validate and complete them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/colbylwilliams/devbox-images/image"
)

var (
	output        = flag.String("o", "schema/image.json", "Output path for the image.yaml schema")
	galleryOutput = flag.String("gallery", "schema/gallery.json", "Output path for the gallery.yaml schema")
)

// GallerySchemaID is the published identifier of the gallery schema.
const GallerySchemaID = "https://github.com/colbylwilliams/devbox-images/schema/gallery.json"

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	data, err := image.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal image schema: %w", err)
	}
	if err := write(*output, data); err != nil {
		return err
	}

	data, err = gallerySchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal gallery schema: %w", err)
	}
	return write(*galleryOutput, data)
}

func gallerySchemaJSON() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}

	schema := reflector.Reflect(&image.GalleryDefinition{})
	schema.ID = jsonschema.ID(GallerySchemaID)
	schema.Title = "Dev Box Gallery"
	schema.Description = "Schema for gallery.yaml, the compute gallery images are published to"
	schema.Required = []string{"name", "resourceGroup"}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	fmt.Printf("Generated JSON schema: %s\n", path)
	return nil
}
