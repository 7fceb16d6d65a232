package hcl_adapter

import (
	"os"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// EnvFunc returns the value of an environment variable, or "" when unset.
var EnvFunc = function.New(&function.Spec{
	Description: "Returns the value of the named environment variable.",
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

// Functions returns the function table available to job expressions.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"env":        EnvFunc,
		"upper":      stdlib.UpperFunc,
		"lower":      stdlib.LowerFunc,
		"format":     stdlib.FormatFunc,
		"concat":     stdlib.ConcatFunc,
		"join":       stdlib.JoinFunc,
		"split":      stdlib.SplitFunc,
		"length":     stdlib.LengthFunc,
		"coalesce":   stdlib.CoalesceFunc,
		"contains":   stdlib.ContainsFunc,
		"range":      stdlib.RangeFunc,
		"merge":      stdlib.MergeFunc,
		"keys":       stdlib.KeysFunc,
		"values":     stdlib.ValuesFunc,
		"flatten":    stdlib.FlattenFunc,
		"replace":    stdlib.ReplaceFunc,
		"trimspace":  stdlib.TrimSpaceFunc,
		"min":        stdlib.MinFunc,
		"max":        stdlib.MaxFunc,
		"setproduct": stdlib.SetProductFunc,
		"zipmap":     stdlib.ZipmapFunc,
	}
}
