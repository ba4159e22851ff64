package query

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/registry"
)

// ExprError reports an expression that failed to compile or run.
type ExprError struct {
	Expr string
	Path string // node being evaluated, empty for compile errors
	Err  error
}

func (e *ExprError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("query: expression %q: %v", e.Expr, e.Err)
	}
	return fmt.Sprintf("query: expression %q at %s: %v", e.Expr, e.Path, e.Err)
}

func (e *ExprError) Unwrap() error {
	return e.Err
}

// Env is the environment an expression is evaluated against, one node at
// a time.
type Env struct {
	Path  string         `expr:"path"`  // relative to the search root
	Name  string         `expr:"name"`
	Kind  string         `expr:"kind"`  // "group" or "dataset"
	Depth int            `expr:"depth"` // 1 for direct children
	Typed bool           `expr:"typed"`
	Type  string         `expr:"type"` // recorded type name of typed groups
	DType string         `expr:"dtype"`
	Shape []int          `expr:"shape"`
	Attrs map[string]any `expr:"attrs"` // non-reserved attributes
}

// Compile checks a boolean node predicate such as
//
//	kind == "dataset" && shape[0] > 100
//	typed && type == "[]float64"
//	"lr" in attrs && attrs.lr < 0.01
func Compile(expression string) (*vm.Program, error) {
	if expression == "" {
		return nil, &ExprError{Expr: expression, Err: fmt.Errorf("%w: empty expression", container.ErrInvalidName)}
	}
	program, err := expr.Compile(expression, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, &ExprError{Expr: expression, Err: err}
	}
	return program, nil
}

// FindByExpr loads the first node for which expression evaluates to true.
func FindByExpr(r *registry.Registry, root *container.Group, expression string) (any, error) {
	program, err := Compile(expression)
	if err != nil {
		return nil, err
	}

	var runErr error
	res := container.Visit(root, func(rel string, n container.Node) any {
		if rel == "" {
			return nil
		}
		out, err := expr.Run(program, envOf(rel, n))
		if err != nil {
			runErr = &ExprError{Expr: expression, Path: n.Path(), Err: err}
			return runErr
		}
		if ok, _ := out.(bool); ok {
			return &match{rel: rel, node: n}
		}
		return nil
	})
	if runErr != nil {
		return nil, runErr
	}
	if res == nil {
		return nil, fmt.Errorf("%w: no node satisfies %q under %s", container.ErrNotFound, expression, root.Path())
	}
	return load(r, res.(*match)) //nolint:forcetypeassert // only *match or runErr are returned
}

func envOf(rel string, n container.Node) Env {
	e := entryOf(n)
	env := Env{
		Path:  rel,
		Name:  n.Name(),
		Kind:  e.Kind.String(),
		Depth: depth(rel),
		Typed: e.Type != "",
		Type:  e.Type,
		DType: e.DType,
		Shape: e.Shape,
		Attrs: map[string]any{},
	}
	if g, ok := n.(*container.Group); ok {
		for _, key := range e.Attrs {
			env.Attrs[key], _ = g.Attr(key)
		}
	}
	return env
}

func depth(rel string) int {
	if rel == "" {
		return 0
	}
	d := 1
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' {
			d++
		}
	}
	return d
}
