package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

const maxErrorBody = 512

// LLMClient calls a generateContent-style generative model endpoint.
// Calls are never retried; the circuit breaker and the bulkhead bound the
// damage a slow or failing endpoint can do.
type LLMClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
}

// NewLLMClient creates a new LLMClient.
func NewLLMClient(httpClient *http.Client, baseURL, model string, cb *gobreaker.CircuitBreaker, bulkhead *resilience.Bulkhead) *LLMClient {
	return &LLMClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		cb:         cb,
		bulkhead:   bulkhead,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt and returns the concatenated text of the first
// candidate.
func (c *LLMClient) Generate(ctx context.Context, apiKey string, prompt domain.LLMPrompt) (string, error) {
	ctx, span := tracer.Start(ctx, "LLMClient.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Bool("llm.has_image", len(prompt.Image) > 0),
	)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return "", &domain.ErrTimeout{Operation: "llm bulkhead"}
	}
	defer c.bulkhead.Release()

	result, err := c.cb.Execute(func() (any, error) {
		return c.call(ctx, apiKey, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &domain.ErrCircuitOpen{Service: "llm"}
		}
		return "", &domain.ErrExternalService{Service: "llm", Err: err}
	}
	return result.(string), nil
}

func (c *LLMClient) call(ctx context.Context, apiKey string, prompt domain.LLMPrompt) (string, error) {
	parts := []part{{Text: prompt.Text}}
	if len(prompt.Image) > 0 {
		mime := prompt.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: mime,
			Data:     base64.StdEncoding.EncodeToString(prompt.Image),
		}})
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("llm API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if isCallerStatus(resp.StatusCode) {
			return "", &resilience.CallerError{Err: err}
		}
		return "", err
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", errors.New("llm response has no candidates")
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", errors.New("llm response has no text")
	}
	return sb.String(), nil
}

// isCallerStatus reports 4xx answers caused by the request, such as a bad
// per-request key. Timeouts and quota exhaustion are the endpoint's problem.
func isCallerStatus(code int) bool {
	return code >= 400 && code < 500 &&
		code != http.StatusRequestTimeout && code != http.StatusTooManyRequests
}
