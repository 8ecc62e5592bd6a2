package bast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// Loaded bundles the parsed AST with its companion symbol map, the two
// inputs every later stage threads through together.
type Loaded struct {
	AST     Node
	Symbols SymMap
}

// Loader is the narrow boundary to the out-of-scope front end: something
// that, given a source path, produces an AST+SymMap pair.
type Loader interface {
	Load(ctx context.Context, path string) (*Loaded, error)
}

// JSONLoader reads a pre-serialized AST+SymMap document directly: under
// this mode the path names a file holding the JSON payload itself, not B
// source.
type JSONLoader struct{}

type jsonPayload struct {
	Root    Node   `json:"root"`
	Symbols SymMap `json:"symbols"`
}

func (JSONLoader) Load(_ context.Context, path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bast: reading %s: %w", path, err)
	}
	var payload jsonPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("bast: decoding AST+SymMap JSON: %w", err)
	}
	if payload.Symbols == nil {
		payload.Symbols = SymMap{}
	}
	return &Loaded{AST: payload.Root, Symbols: payload.Symbols}, nil
}

// PythonLoader shells out to a Python interpreter running the augur.parser
// module. Go has no embedded-interpreter equivalent, so this reimplements
// the boundary as an os/exec subprocess: the interpreter field names the
// python executable (defaults to "python3"), and the loader invokes it with
// a small driver script that calls augur.parser.get_source_program_ast_as_json
// and get_source_program_symbol_table_as_json and writes both to stdout as
// one JSON document.
type PythonLoader struct {
	Interpreter string
}

const pythonDriver = `
import json, sys
from augur import parser

source = open(sys.argv[1]).read()
ast_json = parser.get_source_program_ast_as_json(source)
sym_json = parser.get_source_program_symbol_table_as_json(source)
print(json.dumps({"root": json.loads(ast_json), "symbols": json.loads(sym_json)}))
`

func (p PythonLoader) Load(ctx context.Context, path string) (*Loaded, error) {
	interpreter := p.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	cmd := exec.CommandContext(ctx, interpreter, "-c", pythonDriver, path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("bast: augur.parser subprocess failed: %w: %s", err, stderr.String())
	}
	var payload jsonPayload
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return nil, fmt.Errorf("bast: decoding augur.parser output: %w", err)
	}
	if payload.Symbols == nil {
		payload.Symbols = SymMap{}
	}
	return &Loaded{AST: payload.Root, Symbols: payload.Symbols}, nil
}
