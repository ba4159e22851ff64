package main

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/hpickle"
	"github.com/born-ml/hpickle/internal/observability"
)

func (a *app) lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <container>",
		Short: "List every node of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTree(cmd.Context(), args[0], func(root *hpickle.Group) error {
				return printEntries(cmd.OutOrStdout(), hpickle.Walk(root))
			})
		},
	}
}

func printEntries(w io.Writer, entries []hpickle.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tKIND\tTYPE\tATTRS")
	for _, e := range entries {
		typ := e.Type
		if e.Kind == hpickle.KindDataset {
			typ = fmt.Sprintf("%s%v", e.DType, e.Shape)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Path, e.Kind, typ, strings.Join(e.Attrs, ","))
	}
	return tw.Flush()
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <container> [path]",
		Short: "Load and print the value stored at path (default: the root)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTree(cmd.Context(), args[0], func(root *hpickle.Group) error {
				g := root
				if len(args) == 2 && strings.Trim(args[1], "/") != "" {
					n, err := root.Lookup(strings.Trim(args[1], "/"))
					if err != nil {
						return err
					}
					var ok bool
					if g, ok = n.(*hpickle.Group); !ok {
						fmt.Fprintln(cmd.OutOrStdout(), format(n.(*hpickle.Dataset).Raw()))
						return nil
					}
				}
				v, err := hpickle.LoadFrom(g, a.options()...)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), format(v))
				return nil
			})
		},
	}
}

func (a *app) findCmd() *cobra.Command {
	var useRegexp bool
	cmd := &cobra.Command{
		Use:   "find <container> <pattern>",
		Short: "Print the first value whose path or attribute name matches pattern",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTree(cmd.Context(), args[0], func(root *hpickle.Group) error {
				var (
					v   any
					err error
				)
				if useRegexp {
					re, cerr := regexp.Compile(args[1])
					if cerr != nil {
						return cerr
					}
					v, err = hpickle.FindByRegexp(root, re, a.options()...)
				} else {
					v, err = hpickle.FindByPattern(root, args[1], a.options()...)
				}
				if err != nil {
					return err
				}
				return printMatch(cmd.OutOrStdout(), v)
			})
		},
	}
	cmd.Flags().BoolVarP(&useRegexp, "regexp", "e", false, "treat pattern as a regular expression")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <container> <expression>",
		Short: "Print the first node for which a boolean expression holds",
		Long: `Print the first node for which a boolean expression holds.

The expression sees path, name, kind ("group" or "dataset"), depth, typed,
type, dtype, shape and attrs of each node, for example:

  hpickle query run.hpk 'kind == "dataset" && dtype == "float32"'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTree(cmd.Context(), args[0], func(root *hpickle.Group) error {
				v, err := hpickle.FindByExpr(root, args[1], a.options()...)
				if err != nil {
					return err
				}
				return printMatch(cmd.OutOrStdout(), v)
			})
		},
	}
}

func (a *app) copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <src> <dst>",
		Short: "Copy a container between files and Redis",
		Example: `  hpickle copy run.hpk redis:runs:42
  hpickle copy redis:runs:42 restored.hpk`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, err := a.backend(args[0])
			if err != nil {
				return err
			}
			dst, err := a.backend(args[1])
			if err != nil {
				return err
			}
			root, err := src.Fetch(ctx, false)
			if err != nil {
				return err
			}
			if r, ok := src.(interface{ Release() error }); ok {
				defer func() { _ = r.Release() }()
			}
			if err := dst.Commit(ctx, root); err != nil {
				return err
			}
			observability.CountCommit(dst.Name())
			a.logger.Info("copied container", zap.String("from", args[0]), zap.String("to", args[1]))
			fmt.Fprintf(cmd.OutOrStdout(), "copied %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func printMatch(w io.Writer, v any) error {
	_, err := fmt.Fprintln(w, format(v))
	return err
}

// format renders a loaded value. Mappings and maps print with sorted keys.
func format(v any) string {
	switch x := v.(type) {
	case *hpickle.Mapping:
		parts := make([]string, 0, x.Len())
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, format(val)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, format(x[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
