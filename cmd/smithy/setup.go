package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/smithy/internal/logger"
	"github.com/samcharles93/smithy/internal/model"
	"github.com/samcharles93/smithy/internal/secrets"
	"github.com/samcharles93/smithy/internal/slogan"
	"github.com/samcharles93/smithy/internal/tokenizer"
	"github.com/samcharles93/smithy/internal/translate"
)

// setup runs before every command: it overlays the config file on the flags
// and installs the logger in the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configPath(configFile))
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: load config: %v", err), 1)
	}
	applyConfig(cmd.IsSet, cfg)

	level := logLevel
	if debug {
		level = "debug"
	}
	log := logger.ForFormat(os.Stderr, logFormat, level)
	return logger.WithContext(ctx, log), nil
}

func loadTokenizer() (tokenizer.Tokenizer, error) {
	return tokenizer.Load(tokenizer.Config{
		Backend:  tokenizerBackend,
		Path:     tokenizerJSONPath,
		Encoding: tiktokenEncoding,
		Specials: tokenizer.SloganSpecials,
	})
}

func newTranslator(log logger.Logger) (*translate.Papago, error) {
	store, err := secrets.Load(secretsPath, secrets.Options{Log: log})
	if err != nil {
		return nil, err
	}
	id, secret := store.Papago()
	return translate.NewPapago(translate.PapagoConfig{
		Endpoint:     papagoEndpoint,
		ClientID:     id,
		ClientSecret: secret,
		Source:       sourceLang,
		Target:       targetLang,
		Timeout:      papagoTimeout,
	}, log.With(logger.ComponentKey, "papago")), nil
}

func newRuntime(log logger.Logger) (*slogan.Runtime, error) {
	tr, err := newTranslator(log)
	if err != nil {
		return nil, err
	}
	tok, err := loadTokenizer()
	if err != nil {
		return nil, err
	}
	return slogan.New(slogan.Options{
		Translator:  tr,
		Tokenizer:   tok,
		ModelPath:   modelPath,
		Loader:      model.Load,
		ReloadModel: reloadModel,
		Generation:  generationConfig(),
		Dedupe:      dedupe,
		Log:         log,
	})
}
