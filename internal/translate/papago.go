package translate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/samcharles93/smithy/internal/logger"
)

// Papago defaults.
const (
	DefaultEndpoint = "https://openapi.naver.com/v1/papago/n2mt"
	DefaultSource   = "ko"
	DefaultTarget   = "en"
	DefaultTimeout  = 20 * time.Second
)

const (
	headerClientID     = "X-Naver-Client-Id"
	headerClientSecret = "X-Naver-Client-Secret"
	formContentType    = "application/x-www-form-urlencoded; charset=UTF-8"
)

// PapagoConfig configures the Papago client. Zero fields take the defaults.
type PapagoConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Source       string
	Target       string
	Timeout      time.Duration
}

// Papago calls the Naver Papago machine translation API.
type Papago struct {
	cfg  PapagoConfig
	http *resty.Client
	log  logger.Logger
}

// NewPapago returns a client. Empty credentials are sent as-is and the
// service rejects the call.
func NewPapago(cfg PapagoConfig, log logger.Logger) *Papago {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Default()
	}
	c := resty.New().
		SetTimeout(cfg.Timeout).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &Papago{cfg: cfg, http: c, log: log}
}

// Config returns the effective configuration.
func (p *Papago) Config() PapagoConfig { return p.cfg }

type papagoResponse struct {
	Message struct {
		Result struct {
			SrcLangType    string `json:"srcLangType"`
			TarLangType    string `json:"tarLangType"`
			TranslatedText string `json:"translatedText"`
		} `json:"result"`
	} `json:"message"`
}

type papagoError struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    string `json:"errorCode"`
}

// Translate sends text from Source to Target and returns the translation.
func (p *Papago) Translate(ctx context.Context, text string) (string, error) {
	form := url.Values{}
	form.Set("source", p.cfg.Source)
	form.Set("target", p.cfg.Target)
	form.Set("text", text)

	var resp papagoResponse
	var apiErr papagoError
	start := time.Now()
	rr, err := p.http.R().SetContext(ctx).
		SetHeader(headerClientID, p.cfg.ClientID).
		SetHeader(headerClientSecret, p.cfg.ClientSecret).
		SetHeader("Content-Type", formContentType).
		SetBody(form.Encode()).
		SetResult(&resp).
		SetError(&apiErr).
		Post(p.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: papago request: %w", ErrTranslation, err)
	}

	p.log.Debug("papago response",
		"status", rr.StatusCode(),
		"source", p.cfg.Source,
		"target", p.cfg.Target,
		"duration", time.Since(start),
	)

	if rr.StatusCode() != http.StatusOK {
		return "", &Error{
			Status:  rr.StatusCode(),
			Code:    apiErr.ErrorCode,
			Message: apiErr.ErrorMessage,
			Body:    strings.TrimSpace(rr.String()),
		}
	}

	out := resp.Message.Result.TranslatedText
	if out == "" {
		// The body was not labelled as JSON; decode it directly.
		if err := json.Unmarshal(rr.Body(), &resp); err != nil {
			return "", fmt.Errorf("%w: decode papago response: %w", ErrTranslation, err)
		}
		out = resp.Message.Result.TranslatedText
	}
	if out == "" {
		return "", fmt.Errorf("%w: papago response has no translatedText", ErrTranslation)
	}
	return out, nil
}
