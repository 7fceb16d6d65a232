package hcl_adapter

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/flowerr"
	"github.com/zclconf/go-cty/cty"
)

const (
	blockLocals = "locals"
	blockTask   = "task"
)

// Parser is the HCL implementation of config.Parser.
type Parser struct {
	vars map[string]string
}

// NewParser creates an HCL parser exposing vars as `var.<name>`.
func NewParser(vars map[string]string) *Parser {
	cp := make(map[string]string, len(vars))
	for k, v := range vars {
		cp[k] = v
	}
	return &Parser{vars: cp}
}

// Extensions implements config.Parser.
func (p *Parser) Extensions() []string { return []string{".hcl"} }

// Parse implements config.Parser.
func (p *Parser) Parse(ctx context.Context, path string, data []byte) (any, error) {
	logger := ctxlog.FromContext(ctx)

	file, diags := hclparse.NewParser().ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, &flowerr.SchemaValidationError{File: path, Err: diags}
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, &flowerr.SchemaValidationError{File: path, Err: fmt.Errorf("unexpected HCL body type %T", file.Body)}
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"var":   p.varsValue(),
			"local": cty.EmptyObjectVal,
		},
		Functions: Functions(),
	}

	var taskBlocks []*hclsyntax.Block
	for _, block := range body.Blocks {
		switch block.Type {
		case blockLocals:
			if err := evalLocals(evalCtx, path, block); err != nil {
				return nil, err
			}
		case blockTask:
			taskBlocks = append(taskBlocks, block)
		default:
			return nil, &flowerr.SchemaValidationError{File: path, Field: block.Type, Err: &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported block type",
				Detail:   fmt.Sprintf("Blocks of type %q are not expected here; use an attribute instead.", block.Type),
				Subject:  block.DefRange().Ptr(),
			}}
		}
	}

	out, err := evalAttributes(evalCtx, path, "", body.Attributes)
	if err != nil {
		return nil, err
	}

	if len(taskBlocks) > 0 {
		tasks, err := appendTaskBlocks(evalCtx, path, out["tasks"], taskBlocks)
		if err != nil {
			return nil, err
		}
		out["tasks"] = tasks
	}

	logger.Debug("HCL job file evaluated.", "path", path, "attributes", len(body.Attributes), "task_blocks", len(taskBlocks))
	return out, nil
}

func (p *Parser) varsValue() cty.Value {
	if len(p.vars) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(p.vars))
	for k, v := range p.vars {
		vals[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vals)
}

// sortedAttributes returns attributes in source order.
func sortedAttributes(attrs hclsyntax.Attributes) []*hclsyntax.Attribute {
	out := make([]*hclsyntax.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SrcRange.Start.Byte < out[j].SrcRange.Start.Byte
	})
	return out
}

// evalLocals evaluates a locals block in source order; each local may refer
// to the ones declared before it.
func evalLocals(evalCtx *hcl.EvalContext, path string, block *hclsyntax.Block) error {
	if len(block.Body.Blocks) > 0 {
		return &flowerr.SchemaValidationError{File: path, Field: blockLocals, Err: fmt.Errorf("nested blocks are not allowed in locals")}
	}

	locals := evalCtx.Variables["local"].AsValueMap()
	if locals == nil {
		locals = map[string]cty.Value{}
	}
	for _, attr := range sortedAttributes(block.Body.Attributes) {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return &flowerr.SchemaValidationError{File: path, Field: "local." + attr.Name, Err: diags}
		}
		locals[attr.Name] = val
		evalCtx.Variables["local"] = cty.ObjectVal(locals)
	}
	return nil
}

func evalAttributes(evalCtx *hcl.EvalContext, path, fieldPrefix string, attrs hclsyntax.Attributes) (map[string]any, error) {
	out := make(map[string]any, len(attrs))
	for _, attr := range sortedAttributes(attrs) {
		field := fieldPrefix + attr.Name
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, &flowerr.SchemaValidationError{File: path, Field: field, Err: diags}
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, &flowerr.SchemaValidationError{File: path, Field: field, Err: err}
		}
		out[attr.Name] = native
	}
	return out, nil
}

func appendTaskBlocks(evalCtx *hcl.EvalContext, path string, existing any, blocks []*hclsyntax.Block) ([]any, error) {
	var tasks []any
	switch t := existing.(type) {
	case nil:
	case []any:
		tasks = t
	default:
		tasks = []any{t}
	}

	for _, block := range blocks {
		if len(block.Labels) != 1 {
			return nil, &flowerr.SchemaValidationError{File: path, Field: blockTask, Err: &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid task block",
				Detail:   "A task block needs exactly one label: the task name.",
				Subject:  block.DefRange().Ptr(),
			}}
		}
		name := block.Labels[0]
		if len(block.Body.Blocks) > 0 {
			return nil, &flowerr.SchemaValidationError{File: path, Field: "task." + name, Err: fmt.Errorf("nested blocks are not allowed in a task block; use object attributes")}
		}
		task, err := evalAttributes(evalCtx, path, fmt.Sprintf("task.%s.", name), block.Body.Attributes)
		if err != nil {
			return nil, err
		}
		if _, ok := task["name"]; ok {
			return nil, &flowerr.SchemaValidationError{File: path, Field: "task." + name + ".name", Err: fmt.Errorf("the task name is given by the block label")}
		}
		task["name"] = name
		tasks = append(tasks, task)
	}
	return tasks, nil
}
