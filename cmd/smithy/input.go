package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

var errNoInput = errors.New("error: no input text (pass it as arguments or on stdin)")

// inputText joins args, or reads stdin when there are none.
func inputText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return "", errNoInput
		}
		return text, nil
	}
	if stdinIsTTY() {
		return "", errNoInput
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errNoInput
	}
	return text, nil
}

func historyPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "smithy", "history")
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
