package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func setOutputs(t *testing.T, imagePath, galleryPath string) {
	t.Helper()
	origImage, origGallery := *output, *galleryOutput
	*output, *galleryOutput = imagePath, galleryPath
	t.Cleanup(func() {
		*output, *galleryOutput = origImage, origGallery
	})
}

func readSchema(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("schema JSON is not valid: %v", err)
	}
	return schema
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) (string, string)
		wantErr bool
	}{
		{
			name: "writes both schemas",
			setup: func(t *testing.T) (string, string) {
				t.Helper()
				dir := t.TempDir()
				return filepath.Join(dir, "nested", "image.json"), filepath.Join(dir, "gallery.json")
			},
		},
		{
			name: "returns error on unwritable output",
			setup: func(t *testing.T) (string, string) {
				t.Helper()
				readOnlyDir := filepath.Join(t.TempDir(), "readonly")
				if err := os.Mkdir(readOnlyDir, 0500); err != nil {
					t.Fatalf("mkdir: %v", err)
				}
				t.Cleanup(func() {
					_ = os.Chmod(readOnlyDir, 0700)
				})
				return filepath.Join(readOnlyDir, "image.json"), filepath.Join(readOnlyDir, "gallery.json")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imagePath, galleryPath := tt.setup(t)
			setOutputs(t, imagePath, galleryPath)

			err := run()
			if tt.wantErr {
				if err == nil && os.Geteuid() != 0 {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}

			if title := readSchema(t, imagePath)["title"]; title != "Dev Box Image" {
				t.Errorf("image schema title = %v, want %q", title, "Dev Box Image")
			}
			if title := readSchema(t, galleryPath)["title"]; title != "Dev Box Gallery" {
				t.Errorf("gallery schema title = %v, want %q", title, "Dev Box Gallery")
			}
		})
	}
}

func TestGallerySchemaContent(t *testing.T) {
	dir := t.TempDir()
	setOutputs(t, filepath.Join(dir, "image.json"), filepath.Join(dir, "gallery.json"))

	if err := run(); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	schema := readSchema(t, filepath.Join(dir, "gallery.json"))
	if schema["$id"] != GallerySchemaID {
		t.Errorf("schema $id = %v, want %q", schema["$id"], GallerySchemaID)
	}

	required, ok := schema["required"].([]interface{})
	if !ok || len(required) != 2 {
		t.Fatalf("required = %v, want [name resourceGroup]", schema["required"])
	}

	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("schema missing properties")
	}
	for _, key := range []string{"name", "resourceGroup", "subscription"} {
		if _, ok := props[key]; !ok {
			t.Errorf("schema missing property %q", key)
		}
	}
	if schema["additionalProperties"] != false {
		t.Errorf("additionalProperties = %v, want false", schema["additionalProperties"])
	}
}
