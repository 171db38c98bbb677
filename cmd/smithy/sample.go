package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/smithy/internal/generate"
	"github.com/samcharles93/smithy/internal/logger"
	"github.com/samcharles93/smithy/internal/model"
	"github.com/samcharles93/smithy/internal/tokenizer"
)

func sampleCmd() *cli.Command {
	var (
		rawIDs     string
		showTokens bool
	)

	flags := append(modelFlags(), tokenizerFlags()...)
	flags = append(flags, samplingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "ids",
			Usage:       "comma separated context token ids (instead of text)",
			Destination: &rawIDs,
		},
		&cli.BoolFlag{
			Name:        "show-tokens",
			Usage:       "print token ids next to the decoded text",
			Destination: &showTokens,
		},
	)

	return &cli.Command{
		Name:      "sample",
		Usage:     "Continue raw text or token ids with the model, without translation",
		ArgsUsage: "[text...]",
		Flags:     flags,
		Before:    setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			tok, err := loadTokenizer()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load tokenizer: %v", err), 1)
			}

			var ids []int
			if strings.TrimSpace(rawIDs) != "" {
				ids, err = parseIDs(rawIDs)
			} else {
				var text string
				text, err = inputText(cmd.Args().Slice(), os.Stdin)
				if err == nil {
					ids, err = tok.Encode(text)
				}
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			m, err := model.Load(modelPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load model: %v", err), 1)
			}

			gen := generationConfig()
			seqs, stats, err := generate.New(m, log).Sample(ctx, generate.Request{
				Context:           ids,
				Length:            gen.Length,
				NumSamples:        gen.NumSamples,
				Temperature:       gen.Temperature,
				TopK:              gen.TopK,
				TopP:              gen.TopP,
				RepetitionPenalty: gen.RepetitionPenalty,
				Seed:              gen.Seed,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("sampled", "samples", len(seqs), "steps", stats.Steps, "duration", stats.Duration)
			return printSamples(os.Stdout, tok, seqs, showTokens)
		},
	}
}

func printSamples(w io.Writer, tok tokenizer.Tokenizer, seqs [][]int, showTokens bool) error {
	for i, seq := range seqs {
		text, err := tok.Decode(seq)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "[%d] %q\n", i, text); err != nil {
			return err
		}
		if showTokens {
			if _, err := fmt.Fprintf(w, "    %v\n", seq); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseIDs parses "1, 2,3" into token ids.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid token id %q", field)
		}
		if id < 0 {
			return nil, fmt.Errorf("invalid token id %d", id)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no token ids in %q", s)
	}
	return ids, nil
}
