package db

import (
	"strings"
	"testing"
)

func TestStatements(t *testing.T) {
	stmts := Statements()
	if len(stmts) != 7 {
		t.Fatalf("expected 7 statements, got %d", len(stmts))
	}
	for _, stmt := range stmts {
		if strings.Contains(stmt, "--") {
			t.Errorf("comment leaked into statement: %q", stmt)
		}
		if strings.HasSuffix(stmt, ";") {
			t.Errorf("statement keeps terminator: %q", stmt)
		}
	}
	if !strings.HasPrefix(stmts[4], "CREATE TABLE IF NOT EXISTS passthroughs") {
		t.Errorf("unexpected statement order: %q", stmts[4])
	}
}
