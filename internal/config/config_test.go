package config

import (
	"strings"
	"testing"
)

func TestParseFileBasics(t *testing.T) {
	src := `
# a comment
; also a comment
port 8080
log_level = debug
db_filename=dump.rdb
tags a,b, c
`
	out, err := ParseFile(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if got := out["port"]; len(got) != 1 || got[0] != "8080" {
		t.Fatalf("port = %v", got)
	}
	if got := out["log_level"]; len(got) != 1 || got[0] != "debug" {
		t.Fatalf("log_level = %v", got)
	}
	if got := out["db_filename"]; len(got) != 1 || got[0] != "dump.rdb" {
		t.Fatalf("db_filename = %v", got)
	}
	if got := out["tags"]; len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("tags = %v", got)
	}
}

func TestParseFileIgnoresBlankLines(t *testing.T) {
	out, err := ParseFile(strings.NewReader("\n\n  \n# x\n"))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no directives, got %v", out)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	c := &Config{Port: 8080, LogLevel: "verbose"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error for bad log level")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	c := &Config{Port: 8080, LogLevel: "debug"}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
