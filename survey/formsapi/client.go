package formsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/voicesurvey/anketabot-go/survey"
)

// Config for the form service client. Defaults can be loaded via envdecode.
type Config struct {
	// BaseURL of the form service, like "https://forms.example.com/api/v1".
	// ENV: FORMS_BASE_URL
	BaseURL string `env:"FORMS_BASE_URL,required"`
	// APIKey sent as a bearer token when non-empty. ENV: FORMS_API_KEY
	APIKey string `env:"FORMS_API_KEY"`
	// Timeout bounds each request. ENV: FORMS_TIMEOUT
	Timeout time.Duration `env:"FORMS_TIMEOUT,default=15s"`
}

// Client talks to the form service. It implements both gateway contracts.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

var (
	_ survey.QuestionSource = (*Client)(nil)
	_ survey.SubmissionSink = (*Client)(nil)
)

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("formsapi: base url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("formsapi: invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: timeout},
	}, nil
}

// NewFromEnv builds a Client using envdecode to populate Config.
func NewFromEnv() (*Client, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("formsapi: decode config: %w", err)
	}
	return New(cfg)
}

// Questions fetches and validates the ordered question list for a form. Any
// failure shape surfaces as survey.ErrSourceUnavailable.
func (c *Client) Questions(ctx context.Context, formID string) (survey.QuestionSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("forms", formID, "questions"), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", survey.ErrSourceUnavailable, err)
	}
	c.authorize(req)

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", survey.ErrSourceUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", survey.ErrSourceUnavailable, res.StatusCode)
	}

	var qs survey.QuestionSet
	if err := json.NewDecoder(res.Body).Decode(&qs); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", survey.ErrSourceUnavailable, err)
	}
	if err := qs.Validate(); err != nil {
		return nil, fmt.Errorf("%w: malformed question set: %v", survey.ErrSourceUnavailable, err)
	}
	return qs, nil
}

// Submit delivers the final answers payload. Any failure shape surfaces as
// survey.ErrSubmissionFailed.
func (c *Client) Submit(ctx context.Context, formID string, sub survey.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", survey.ErrSubmissionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("forms", formID, "submissions"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", survey.ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", survey.ErrSubmissionFailed, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d", survey.ErrSubmissionFailed, res.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(parts ...string) string {
	u := c.baseURL
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
