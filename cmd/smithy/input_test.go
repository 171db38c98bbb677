package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/samcharles93/smithy/internal/slogan"
)

func TestInputText(t *testing.T) {
	orig := stdinIsTTY
	t.Cleanup(func() { stdinIsTTY = orig })

	t.Run("args are joined", func(t *testing.T) {
		stdinIsTTY = func() bool { return true }
		got, err := inputText([]string{"맛있는", "커피"}, strings.NewReader("ignored"))
		if err != nil {
			t.Fatalf("inputText: %v", err)
		}
		if got != "맛있는 커피" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("stdin when no args", func(t *testing.T) {
		stdinIsTTY = func() bool { return false }
		got, err := inputText(nil, strings.NewReader("  맛있는 커피\n"))
		if err != nil {
			t.Fatalf("inputText: %v", err)
		}
		if got != "맛있는 커피" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("tty without args", func(t *testing.T) {
		stdinIsTTY = func() bool { return true }
		if _, err := inputText(nil, strings.NewReader("x")); !errors.Is(err, errNoInput) {
			t.Fatalf("expected errNoInput, got %v", err)
		}
	})

	t.Run("blank input", func(t *testing.T) {
		stdinIsTTY = func() bool { return false }
		if _, err := inputText(nil, strings.NewReader(" \n")); !errors.Is(err, errNoInput) {
			t.Fatalf("expected errNoInput, got %v", err)
		}
		if _, err := inputText([]string{" "}, nil); !errors.Is(err, errNoInput) {
			t.Fatalf("expected errNoInput, got %v", err)
		}
	})
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("50258, 31373,995 ,")
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	want := []int{50258, 31373, 995}
	if len(ids) != len(want) {
		t.Fatalf("got %v want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v want %v", ids, want)
		}
	}

	for _, bad := range []string{"", " , ", "1,x", "-3"} {
		if _, err := parseIDs(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestPrintResult(t *testing.T) {
	res := &slogan.Result{
		RequestID:   "id-1",
		Source:      "커피",
		Translation: "coffee",
		Slogans:     []string{" Wake up to coffee", " Coffee first"},
	}

	var buf bytes.Buffer
	if err := printResult(&buf, res, false); err != nil {
		t.Fatalf("printResult: %v", err)
	}
	if got, want := buf.String(), "1. Wake up to coffee\n2. Coffee first\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	buf.Reset()
	if err := printResult(&buf, res, true); err != nil {
		t.Fatalf("printResult: %v", err)
	}
	for _, want := range []string{`"request_id": "id-1"`, `"translation": "coffee"`, `" Coffee first"`} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("json output %q missing %q", buf.String(), want)
		}
	}
}
