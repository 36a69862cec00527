package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/straye-as/dossier-api/internal/config"
	"go.uber.org/zap"
)

const anthropicVersion = "2023-06-01"

// maxResponseBytes caps how much of an API reply is read
const maxResponseBytes = 4 << 20

// ErrDisabled is returned by the extractor used when extraction is switched off
var ErrDisabled = errors.New("document extraction is disabled")

// Request is the input of one extraction call
type Request struct {
	Text               string
	FieldKeys          []string
	ContextHints       []string
	CustomInstructions string
}

// Extractor turns document text into field values. The result may be empty and
// may contain keys outside FieldKeys.
type Extractor interface {
	Extract(ctx context.Context, req Request) (map[string]string, error)
}

// NewExtractor returns the messages-API client, or a disabled extractor when
// extraction is switched off in configuration
func NewExtractor(cfg *config.ExtractionConfig, logger *zap.Logger) (Extractor, error) {
	if !cfg.Enabled {
		logger.Warn("Document extraction disabled, analysis runs will fail")
		return disabledExtractor{}, nil
	}
	return NewClient(cfg, logger)
}

type disabledExtractor struct{}

func (disabledExtractor) Extract(context.Context, Request) (map[string]string, error) {
	return nil, ErrDisabled
}

// Client calls a messages-style language model API and parses a JSON object of
// field values from the reply
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new extraction client
func NewClient(cfg *config.ExtractionConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extraction API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("extraction base URL is required")
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.TimeoutDuration(),
		},
		logger: logger,
	}, nil
}

// Extract sends the document text with the requested keys and returns the
// non-null values of the reply
func (c *Client) Extract(ctx context.Context, req Request) (map[string]string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return map[string]string{}, nil
	}

	reply, err := c.callAPI(ctx, buildPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("extraction api call: %w", err)
	}

	values, err := parseValues(reply)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("extraction reply parsed",
		zap.Int("requested_keys", len(req.FieldKeys)),
		zap.Int("returned_values", len(values)),
	)
	return values, nil
}

func buildPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("Extract structured values from this real-estate document. Return JSON only.\n\n")
	sb.WriteString("Document:\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n\n")

	sb.WriteString("Fields to extract (use these keys exactly):\n")
	for _, key := range req.FieldKeys {
		sb.WriteString("- ")
		sb.WriteString(key)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(req.ContextHints) > 0 {
		sb.WriteString("Context:\n")
		for _, hint := range req.ContextHints {
			sb.WriteString("- ")
			sb.WriteString(hint)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if strings.TrimSpace(req.CustomInstructions) != "" {
		sb.WriteString("Additional instructions:\n")
		sb.WriteString(req.CustomInstructions)
		sb.WriteString("\n\n")
	}

	sb.WriteString(`Return a flat JSON object mapping each field key to its value as a string, for example:
{"koper_naam": "J. Jansen", "koopsom": "350000"}

Rules:
- Use null for fields the document does not mention
- Dates as DD-MM-YYYY, amounts without currency sign
- Copy names and addresses exactly as written

Return ONLY the JSON, no other text.`)

	return sb.String()
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxResponseBytes {
		return "", fmt.Errorf("response exceeds %d bytes (status %d)", maxResponseBytes, resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, apiResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	for _, part := range apiResp.Content {
		if part.Type == "text" {
			return part.Text, nil
		}
	}
	return "", fmt.Errorf("empty response")
}

// parseValues reads a JSON object from the model reply. Nulls are dropped and
// scalar values are converted to text.
func parseValues(reply string) (map[string]string, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		return nil, fmt.Errorf("parse extraction result: %w", err)
	}

	values := make(map[string]string, len(raw))
	for key, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			values[key] = val
		case float64:
			values[key] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			values[key] = strconv.FormatBool(val)
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				continue
			}
			values[key] = string(encoded)
		}
	}
	return values, nil
}
