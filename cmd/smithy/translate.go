package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/smithy/internal/logger"
)

func translateCmd() *cli.Command {
	return &cli.Command{
		Name:      "translate",
		Usage:     "Translate text with Papago and print the result",
		ArgsUsage: "[text...]",
		Flags:     translateFlags(),
		Before:    setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			text, err := inputText(cmd.Args().Slice(), os.Stdin)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			tr, err := newTranslator(log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			out, err := tr.Translate(ctx, text)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			fmt.Println(out)
			return nil
		},
	}
}
