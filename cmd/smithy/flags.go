package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/smithy/internal/secrets"
	"github.com/samcharles93/smithy/internal/slogan"
	"github.com/samcharles93/smithy/internal/tokenizer"
	"github.com/samcharles93/smithy/internal/translate"
)

const defaultTokenizerJSON = "models/tokenizer.json"

var (
	configFile string

	modelPath   string
	reloadModel bool

	tokenizerBackend  string
	tokenizerJSONPath string
	tiktokenEncoding  string

	secretsPath    string
	papagoEndpoint string
	sourceLang     string
	targetLang     string
	papagoTimeout  time.Duration

	seqLen        int64
	length        int64
	numSamples    int64
	temp          float64
	topK          int64
	topP          float64
	repeatPenalty float64
	seed          int64
	dedupe        bool

	logLevel  string
	logFormat string
	debug     bool
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Usage:       "path to config.yaml (default $SMITHY_CONFIG or ~/.config/smithy/config.yaml)",
		Destination: &configFile,
	}
}

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to the slogan model weights (.safetensors)",
			Value:       slogan.DefaultModelPath,
			Destination: &modelPath,
		},
		&cli.BoolFlag{
			Name:        "reload-model",
			Usage:       "load the weights again for every request",
			Destination: &reloadModel,
		},
	}
}

func tokenizerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tokenizer",
			Usage:       "tokenizer backend (hf, tiktoken)",
			Value:       tokenizer.BackendHF,
			Destination: &tokenizerBackend,
		},
		&cli.StringFlag{
			Name:        "tokenizer-json",
			Usage:       "path to tokenizer.json for the hf backend",
			Value:       defaultTokenizerJSON,
			Destination: &tokenizerJSONPath,
		},
		&cli.StringFlag{
			Name:        "tiktoken-encoding",
			Usage:       "encoding for the tiktoken backend",
			Value:       tokenizer.DefaultEncoding,
			Destination: &tiktokenEncoding,
		},
	}
}

func translateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "secrets",
			Usage:       "path to the secrets JSON file",
			Value:       secrets.DefaultPath,
			Destination: &secretsPath,
		},
		&cli.StringFlag{
			Name:        "papago-endpoint",
			Usage:       "Papago translation endpoint",
			Value:       translate.DefaultEndpoint,
			Destination: &papagoEndpoint,
		},
		&cli.StringFlag{
			Name:        "source",
			Usage:       "source language",
			Value:       translate.DefaultSource,
			Destination: &sourceLang,
		},
		&cli.StringFlag{
			Name:        "target",
			Usage:       "target language",
			Value:       translate.DefaultTarget,
			Destination: &targetLang,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "translation request timeout",
			Value:       translate.DefaultTimeout,
			Destination: &papagoTimeout,
		},
	}
}

func samplingFlags() []cli.Flag {
	def := slogan.DefaultGenerationConfig()
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "seq-len",
			Usage:       "length of the segment template",
			Value:       int64(def.SeqLen),
			Destination: &seqLen,
		},
		&cli.Int64Flag{
			Name:        "length",
			Aliases:     []string{"n", "steps"},
			Usage:       "number of tokens to generate",
			Value:       int64(def.Length),
			Destination: &length,
		},
		&cli.Int64Flag{
			Name:        "samples",
			Aliases:     []string{"num-samples"},
			Usage:       "number of candidates",
			Value:       int64(def.NumSamples),
			Destination: &numSamples,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature (0 = greedy)",
			Value:       float64(def.Temperature),
			Destination: &temp,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Aliases:     []string{"top_k", "topk"},
			Usage:       "top-k sampling parameter (0 = disabled)",
			Value:       int64(def.TopK),
			Destination: &topK,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Aliases:     []string{"top_p", "topp"},
			Usage:       "top_p sampling parameter (0 = disabled)",
			Value:       float64(def.TopP),
			Destination: &topP,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Aliases:     []string{"repeat_penalty"},
			Usage:       "repetition penalty (1.0 = disabled)",
			Value:       float64(def.RepetitionPenalty),
			Destination: &repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling RNG seed (default -1 = random)",
			Value:       def.Seed,
			Destination: &seed,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func generationConfig() slogan.GenerationConfig {
	return slogan.GenerationConfig{
		SeqLen:            int(seqLen),
		Length:            int(length),
		NumSamples:        int(numSamples),
		Temperature:       float32(temp),
		TopK:              int(topK),
		TopP:              float32(topP),
		RepetitionPenalty: float32(repeatPenalty),
		Seed:              seed,
	}
}
