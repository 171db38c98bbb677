package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/smithy/internal/logger"
	"github.com/samcharles93/smithy/internal/slogan"
)

func sloganCmd() *cli.Command {
	var (
		asJSON      bool
		interactive bool
	)

	flags := append(modelFlags(), tokenizerFlags()...)
	flags = append(flags, translateFlags()...)
	flags = append(flags, samplingFlags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:        "dedupe",
			Usage:       "drop repeated candidates",
			Destination: &dedupe,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print the result as JSON",
			Destination: &asJSON,
		},
		&cli.BoolFlag{
			Name:        "interactive",
			Aliases:     []string{"i"},
			Usage:       "read inputs from an interactive prompt",
			Destination: &interactive,
		},
	)

	return &cli.Command{
		Name:      "slogan",
		Usage:     "Translate Korean text and generate English slogan candidates",
		ArgsUsage: "[text...]",
		Flags:     flags,
		Before:    setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			rt, err := newRuntime(log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if interactive {
				return runPrompt(ctx, rt, os.Stdout, asJSON)
			}

			text, err := inputText(cmd.Args().Slice(), os.Stdin)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			res, err := rt.Generate(ctx, text)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return printResult(os.Stdout, res, asJSON)
		},
	}
}

func printResult(w io.Writer, res *slogan.Result, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	for i, s := range res.Slogans {
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, strings.TrimSpace(s)); err != nil {
			return err
		}
	}
	return nil
}

// runPrompt reads one input per line until EOF, "exit" or an interrupt on
// an empty line. Failed requests are logged and the prompt continues.
func runPrompt(ctx context.Context, rt *slogan.Runtime, out io.Writer, asJSON bool) error {
	log := logger.FromContext(ctx)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "slogan> ",
		HistoryFile:     historyPath(),
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		res, err := rt.Generate(ctx, line)
		if err != nil {
			log.Error("slogan generation failed", "error", err)
			continue
		}
		if err := printResult(out, res, asJSON); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
