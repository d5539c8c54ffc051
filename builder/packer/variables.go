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

package packer

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/colbylwilliams/devbox-images/command"
	"github.com/colbylwilliams/devbox-images/logging"
)

// DefaultVariables are assumed when a template's variables cannot be
// discovered.
var DefaultVariables = []string{
	"subscription",
	"name",
	"location",
	"version",
	"tempResourceGroup",
	"buildResourceGroup",
	"gallery",
	"replicaLocations",
	"repos",
	"branch",
	"commit",
}

// Variable is an input variable declared by a packer template.
type Variable struct {
	Name string
	// Required is set when the variable declares no default.
	Required bool
	// Default is the literal default from the HCL source, when it could
	// be evaluated without context.
	Default cty.Value
}

// DefaultJSON renders the variable's default as JSON. It returns "" when
// the default is absent or could not be evaluated.
func (v Variable) DefaultJSON() string {
	if v.Default.IsNull() || !v.Default.IsWhollyKnown() {
		return ""
	}
	data, err := ctyjson.SimpleJSONValue{Value: v.Default}.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(data)
}

func names(vars []Variable) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name)
	}
	return out
}

var inspectVarRE = regexp.MustCompile(`^var\.([A-Za-z_][A-Za-z0-9_-]*):\s*(.*)$`)

// parseInspect extracts variables from 'packer inspect -machine-readable'
// output, where message newlines are escaped as a literal \n.
func parseInspect(output string) []Variable {
	output = strings.ReplaceAll(output, `\n`, "\n")

	seen := map[string]bool{}
	var vars []Variable
	for _, line := range strings.Split(output, "\n") {
		m := inspectVarRE.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		value := strings.Trim(strings.TrimSpace(m[2]), `"`)
		vars = append(vars, Variable{Name: m[1], Required: value == "<unknown>"})
	}
	return vars
}

// hclVariables parses the variable blocks of every *.pkr.hcl file in dir.
func hclVariables(ctx context.Context, dir string) []Variable {
	files, err := filepath.Glob(filepath.Join(dir, "*.pkr.hcl"))
	if err != nil || len(files) == 0 {
		return nil
	}
	sort.Strings(files)

	schema := &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{{Type: "variable", LabelNames: []string{"name"}}},
	}

	parser := hclparse.NewParser()
	seen := map[string]bool{}
	var vars []Variable
	for _, path := range files {
		f, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			logging.DebugContext(ctx, "Failed to parse %s: %s", path, diags.Error())
			continue
		}

		content, _, diags := f.Body.PartialContent(schema)
		if diags.HasErrors() {
			logging.DebugContext(ctx, "Failed to read variables from %s: %s", path, diags.Error())
			continue
		}

		for _, block := range content.Blocks {
			name := block.Labels[0]
			if seen[name] {
				continue
			}
			seen[name] = true
			def, ok := defaultValue(block.Body)
			vars = append(vars, Variable{Name: name, Required: !ok, Default: def})
		}
	}
	return vars
}

// defaultValue returns the variable's default and whether it declares
// one. A default of null counts as none.
func defaultValue(body hcl.Body) (cty.Value, bool) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		// Nested validation blocks make JustAttributes fail; fall back to
		// a partial read of the default attribute.
		content, _, pdiags := body.PartialContent(&hcl.BodySchema{
			Attributes: []hcl.AttributeSchema{{Name: "default"}},
		})
		if pdiags.HasErrors() {
			return cty.NilVal, false
		}
		attrs = content.Attributes
	}

	attr, ok := attrs["default"]
	if !ok {
		return cty.NilVal, false
	}
	val, vdiags := attr.Expr.Value(nil)
	if vdiags.HasErrors() {
		// Defaults referencing functions or locals still count as defaults.
		return cty.DynamicVal, true
	}
	if val.IsKnown() && val.IsNull() {
		return cty.NilVal, false
	}
	return val, true
}

// Variables returns the input variables declared by the template in dir.
// It asks 'packer inspect' first, then parses the HCL files directly, and
// finally assumes DefaultVariables.
func (a *Adapter) Variables(ctx context.Context, dir string) []Variable {
	res, err := a.runner.Run(ctx, command.New(a.binary, "inspect", "-machine-readable", dir))
	switch {
	case err != nil:
		logging.DebugContext(ctx, "packer inspect failed: %v", err)
	case !res.Success():
		logging.DebugContext(ctx, "packer inspect exited with code %d", res.ExitCode)
	default:
		if vars := parseInspect(res.Output); len(vars) > 0 {
			return vars
		}
	}

	if vars := hclVariables(ctx, dir); len(vars) > 0 {
		logging.DebugContext(ctx, "Discovered %d variables from HCL files", len(vars))
		return vars
	}

	logging.DebugContext(ctx, "Using default packer variables")
	vars := make([]Variable, 0, len(DefaultVariables))
	for _, name := range DefaultVariables {
		vars = append(vars, Variable{Name: name})
	}
	return vars
}
