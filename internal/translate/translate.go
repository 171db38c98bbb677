// Package translate turns the user's Korean input into English before it is
// handed to the language model.
package translate

import (
	"context"
	"errors"
	"fmt"
)

// ErrTranslation marks every failure of the translation service.
var ErrTranslation = errors.New("translation failed")

// Translator translates one piece of text.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, text string) (string, error)

func (f Func) Translate(ctx context.Context, text string) (string, error) { return f(ctx, text) }

// Error is returned when the service answers with a non-success status.
type Error struct {
	Status int
	// Code and Message come from the service's error body when it has one.
	Code    string
	Message string
	Body    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("translate: HTTP %d: %s %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("translate: HTTP %d: %s", e.Status, abbreviate(e.Body, 200))
}

func (e *Error) Unwrap() error { return ErrTranslation }

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
