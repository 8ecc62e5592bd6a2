package bast

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestJSONLoaderLoad(t *testing.T) {
	payload := `{"root":{"node":"number_literal","root":"1"},"symbols":{"x":{"type":"variable","line":1,"column":2}}}`
	path := filepath.Join(t.TempDir(), "prog.json")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	loaded, err := JSONLoader{}.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.AST.Tag != "number_literal" {
		t.Errorf("expected root tag number_literal, got %q", loaded.AST.Tag)
	}
	info, ok := loaded.Symbols["x"]
	if !ok || info.Line != 1 || info.Column != 2 {
		t.Errorf("unexpected symbol info: %+v", info)
	}
}

func TestJSONLoaderMissingSymbolsDefaultsEmpty(t *testing.T) {
	payload := `{"root":{"node":"number_literal","root":"1"}}`
	path := filepath.Join(t.TempDir(), "prog.json")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	loaded, err := JSONLoader{}.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Symbols == nil {
		t.Error("expected non-nil empty Symbols map when absent from payload")
	}
}

func TestJSONLoaderMissingFileErrors(t *testing.T) {
	_, err := JSONLoader{}.Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}
