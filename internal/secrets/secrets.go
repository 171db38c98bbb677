// Package secrets reads service credentials from a JSON file, with
// environment variables of the same name taking precedence.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	"github.com/samcharles93/smithy/internal/logger"
)

// Keys understood by the store.
const (
	PapagoUserID    = "PAPAGO_USER_ID"
	PapagoSecretKey = "PAPAGO_SECRET_KEY"
)

// DefaultPath is used when no secrets file is configured.
const DefaultPath = "secrets.json"

// Keys lists every credential the store resolves.
var Keys = []string{PapagoUserID, PapagoSecretKey}

var schema = gojsonschema.NewStringLoader(`{
  "type": "object",
  "properties": {
    "PAPAGO_USER_ID": {"type": "string"},
    "PAPAGO_SECRET_KEY": {"type": "string"}
  },
  "required": ["PAPAGO_USER_ID", "PAPAGO_SECRET_KEY"]
}`)

// ErrInvalid is returned for a secrets file that is not a flat object of
// string values.
var ErrInvalid = errors.New("invalid secrets file")

// Store holds resolved credentials. Missing keys resolve to "".
type Store struct {
	values map[string]string
}

// Options tune Load. Getenv defaults to os.Getenv.
type Options struct {
	Getenv func(string) string
	Log    logger.Logger
}

// Load reads path and resolves every key in Keys. A missing file is not an
// error; neither is a missing key. Both are logged.
func Load(path string, opts Options) (*Store, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Log == nil {
		opts.Log = logger.Default()
	}
	log := opts.Log.With(logger.ComponentKey, "secrets")

	values := make(map[string]string, len(Keys))
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn("secrets file not found", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read secrets: %w", err)
	default:
		if err := parse(data, values); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	for _, key := range Keys {
		if v := strings.TrimSpace(opts.Getenv(key)); v != "" {
			values[key] = v
		}
		if values[key] == "" {
			log.Warn(fmt.Sprintf("Set the %s environment variable", key), "key", key)
		}
	}
	return &Store{values: values}, nil
}

func parse(data []byte, into map[string]string) error {
	res, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !res.Valid() {
		var msgs []string
		for _, e := range res.Errors() {
			// Missing keys are reported per key after env lookup.
			if e.Type() == "required" {
				continue
			}
			msgs = append(msgs, e.String())
		}
		if len(msgs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			into[k] = s
		}
	}
	return nil
}

// New builds a store from explicit values.
func New(values map[string]string) *Store {
	s := &Store{values: make(map[string]string, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Get returns the value for key, or "".
func (s *Store) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.values[key]
}

// Has reports whether key resolved to a non-empty value.
func (s *Store) Has(key string) bool { return s.Get(key) != "" }

// Papago returns the Papago client id and secret.
func (s *Store) Papago() (clientID, clientSecret string) {
	return s.Get(PapagoUserID), s.Get(PapagoSecretKey)
}
