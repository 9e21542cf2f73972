package selection

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
)

// filterEnv is the environment a filter expression sees for one item.
type filterEnv struct {
	Kind   string  `expr:"kind"`
	Layer  string  `expr:"layer"`
	Net    string  `expr:"net"`
	Width  float64 `expr:"width"`
	Locked bool    `expr:"locked"`
}

// Filter is a compiled boolean expression over item attributes, for example
// `kind != "zone" || net != "GND"`.
type Filter struct {
	program    *exprvm.Program
	expression string
}

// CompileFilter compiles expression. An empty expression yields a nil
// filter which matches everything.
func CompileFilter(expression string) (*Filter, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := exprlang.Compile(expression, exprlang.Env(filterEnv{}), exprlang.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expression, err)
	}
	return &Filter{program: program, expression: expression}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expression
}

// Match evaluates the filter for item.
func (f *Filter) Match(item pcb.Item) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := exprlang.Run(f.program, envFor(item))
	if err != nil {
		return false, fmt.Errorf("filter %q: %w", f.expression, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

func envFor(item pcb.Item) filterEnv {
	env := filterEnv{
		Kind:  item.Kind().String(),
		Layer: item.LayerName(),
		Net:   item.NetName(),
	}
	switch v := item.(type) {
	case *pcb.Track:
		env.Width, env.Locked = v.Width, v.Locked
	case *pcb.Zone:
		env.Locked = v.Locked
	case *pcb.Text:
		env.Locked = v.Locked
	case *pcb.Drawing:
		env.Width, env.Locked = v.Stroke.Width, v.Locked
	case *pcb.Footprint:
		env.Locked = v.Locked
	}
	return env
}
