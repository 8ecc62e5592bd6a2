// cmd/bquad/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"bquad/internal/backend/llvmgen"
	"bquad/internal/bast"
	"bquad/internal/diag"
	"bquad/internal/frame"
	"bquad/internal/ir"
	"bquad/internal/typecheck"
)

const version = "0.1.0"

type options struct {
	astLoader  string
	target     string
	debug      bool
	output     string
	sourcePath string
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		diag.Report(os.Stderr, err)
		os.Exit(1)
	}
	if opts == nil {
		return // --help handled
	}
	if err := run(opts); err != nil {
		diag.Report(os.Stderr, err)
		if opts.debug {
			diag.ReportStack(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func parseArgs(args []string) (*options, error) {
	opts := &options{astLoader: "python", target: "ir", output: ""}
	var positional []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--help" || a == "-h":
			showUsage()
			return nil, nil
		case a == "--debug":
			opts.debug = true
		case strings.HasPrefix(a, "--ast-loader"):
			v, n, err := flagValue(args, i, a)
			if err != nil {
				return nil, err
			}
			opts.astLoader = v
			i = n
		case strings.HasPrefix(a, "--target"):
			v, n, err := flagValue(args, i, a)
			if err != nil {
				return nil, err
			}
			opts.target = v
			i = n
		case strings.HasPrefix(a, "--output"):
			v, n, err := flagValue(args, i, a)
			if err != nil {
				return nil, err
			}
			opts.output = v
			i = n
		case strings.HasPrefix(a, "-"):
			return nil, diag.New(diag.InvalidPath, fmt.Sprintf("unrecognized flag %q", a))
		default:
			positional = append(positional, a)
		}
	}

	if len(positional) != 1 {
		return nil, diag.New(diag.InvalidPath, "expected exactly one positional source-code argument")
	}
	opts.sourcePath = positional[0]

	switch opts.astLoader {
	case "json", "python":
	default:
		return nil, diag.New(diag.InvalidPath, fmt.Sprintf("unrecognized --ast-loader %q", opts.astLoader))
	}
	switch opts.target {
	case "ir", "syntax", "ast", "arm64", "x86_64", "z80", "llvm":
	default:
		return nil, diag.New(diag.InvalidPath, fmt.Sprintf("unrecognized --target %q", opts.target))
	}
	return opts, nil
}

// flagValue supports both "--flag value" and "--flag=value" forms,
// returning the consumed value and the index parseArgs' loop should resume
// scanning from.
func flagValue(args []string, i int, a string) (string, int, error) {
	if eq := strings.IndexByte(a, '='); eq >= 0 {
		return a[eq+1:], i, nil
	}
	if i+1 >= len(args) {
		return "", i, diag.New(diag.InvalidPath, fmt.Sprintf("%q requires a value", a))
	}
	return args[i+1], i + 1, nil
}

func showUsage() {
	fmt.Println("bquad - B source to quadruple IR compiler")
	fmt.Println()
	fmt.Println("Usage: bquad [flags] <source-code>")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --ast-loader {json|python}   front-end AST source (default python)")
	fmt.Println("  --target {ir|syntax|ast|arm64|x86_64|z80|llvm}   output target (default ir)")
	fmt.Println("  --output <path>              write output to path (default stdout)")
	fmt.Println("  --debug                      emit a symbol-table debug dump")
	fmt.Println("  --help                        show this message")
}

func run(opts *options) error {
	ctx := context.Background()
	buildID := uuid.New()

	var loader bast.Loader
	if opts.astLoader == "json" {
		loader = bast.JSONLoader{}
	} else {
		loader = bast.PythonLoader{Interpreter: "python3"}
	}

	loaded, err := loader.Load(ctx, opts.sourcePath)
	if err != nil {
		return err
	}

	// The symbol-table dump always precedes the requested target's own
	// output and is suppressed only for "ast"; unlike the Object Table
	// dump below, this one is available even for targets that never run
	// the IR pipeline ("syntax").
	if opts.debug && opts.target != "ast" {
		dumpSymbols(buildID, loaded.Symbols)
	}

	if opts.target == "syntax" || opts.target == "ast" {
		return writeOutput(opts, fmt.Sprintf("%+v\n", loaded.AST))
	}

	builder := ir.NewBuilder(loaded.Symbols)
	stream, err := builder.BuildProgram(loaded.AST)
	if err != nil {
		return err
	}

	objects, cleaned, err := frame.Run(stream)
	if err != nil {
		return err
	}

	if err := typecheck.CheckProgram(ctx, objects); err != nil {
		return err
	}

	if opts.debug {
		dumpDebug(buildID, objects)
	}

	switch opts.target {
	case "ir":
		return writeOutput(opts, cleaned.String())
	case "llvm":
		mod, err := llvmgen.Translate(objects)
		if err != nil {
			return err
		}
		return writeOutput(opts, mod.String())
	case "arm64", "x86_64", "z80":
		// Each would implement backend.Visitor over the cleaned stream;
		// none is wired up yet.
		return diag.New(diag.InvalidPath, fmt.Sprintf("target %q has no native backend registered", opts.target))
	default:
		return diag.New(diag.InvalidPath, fmt.Sprintf("unhandled target %q", opts.target))
	}
}

func writeOutput(opts *options, text string) error {
	if opts.output == "" || opts.output == "stdout" {
		fmt.Print(text)
		return nil
	}
	return os.WriteFile(opts.output, []byte(text), 0o644)
}

// dumpSymbols prints the companion source-symbol map, tagged with a fresh
// build id.
func dumpSymbols(id uuid.UUID, symbols bast.SymMap) {
	fmt.Fprintf(os.Stderr, "bquad debug dump %s @ %s (version %s)\n", id, time.Now().Format(time.RFC3339), version)
	fmt.Fprintln(os.Stderr, "> Symbol Table:")
	for name, info := range symbols {
		fmt.Fprintf(os.Stderr, "  %s: %s @ %d:%d\n", name, info.Type, info.Line, info.Column)
	}
}

// dumpDebug prints a one-shot human-readable snapshot of the Object Table,
// tagged with a fresh build id so repeated --debug runs over the same
// source are distinguishable in logs.
func dumpDebug(id uuid.UUID, objects *frame.ObjectTable) {
	fmt.Fprintf(os.Stderr, "bquad debug dump %s @ %s (version %s)\n", id, time.Now().Format(time.RFC3339), version)
	for _, name := range objects.FunctionOrder {
		fr := objects.Functions[name]
		fmt.Fprintf(os.Stderr, "  function %s: %s allocated, %d locals, %d labels\n",
			name, humanize.Bytes(uint64(fr.Allocation)), len(fr.Locals), len(fr.Labels))
	}
	for _, name := range objects.VectorOrder {
		v := objects.Vectors[name]
		fmt.Fprintf(os.Stderr, "  vector %s: size %d\n", name, v.Size)
	}
}
