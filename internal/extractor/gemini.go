package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pbaille/calsync/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	geminiAPI    = "https://generativelanguage.googleapis.com"
	DefaultModel = "gemini-2.5-pro"
)

const instruction = "Extraia os eventos do calendário acadêmico do arquivo PDF anexado e formate-os de acordo com o JSON schema fornecido."

// Client extracts structured calendars via the Gemini API
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	log     *logrus.Entry
}

// Option customizes a Client
type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l.WithField("component", "extractor")
		}
	}
}

// New creates a Client. An empty apiKey is an error.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", domain.ErrExternalAPI)
	}

	c := &Client{
		apiKey:  apiKey,
		model:   DefaultModel,
		baseURL: geminiAPI,
		http:    http.DefaultClient,
		log:     logrus.NewEntry(logrus.StandardLogger()).WithField("component", "extractor"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Extract sends the PDF at pdfPath together with the response schema and
// returns the model's JSON answer re-indented with two spaces.
func (c *Client) Extract(ctx context.Context, pdfPath string, schema json.RawMessage) ([]byte, error) {
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pdfPath, err)
	}

	c.log.WithFields(logrus.Fields{"model": c.model, "file": pdfPath, "bytes": len(pdf)}).
		Info("sending calendar to Gemini, this may take a moment")

	text, err := c.generate(ctx, buildRequest(pdf, schema))
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}

	out, err := parseResponse(text)
	if err != nil {
		return nil, err
	}

	c.log.WithField("bytes", len(out)).Info("calendar extracted")
	return out, nil
}

type apiRequest struct {
	Contents         []apiContent     `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type apiContent struct {
	Role  string    `json:"role"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type apiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func buildRequest(pdf []byte, schema json.RawMessage) apiRequest {
	return apiRequest{
		Contents: []apiContent{{
			Role: "user",
			Parts: []apiPart{
				{Text: instruction},
				{InlineData: &inlineData{
					MimeType: "application/pdf",
					Data:     base64.StdEncoding.EncodeToString(pdf),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}
}

func (c *Client) generate(ctx context.Context, reqBody apiRequest) (string, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: http request: %v", domain.ErrExternalAPI, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrExternalAPI, err)
	}

	var apiResp apiResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &apiResp) == nil && apiResp.Error != nil {
			return "", fmt.Errorf("%w: status %d: %s", domain.ErrExternalAPI, resp.StatusCode, apiResp.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrExternalAPI, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", domain.ErrExternalAPI, err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrExternalAPI, apiResp.Error.Message)
	}

	if len(apiResp.Candidates) == 0 {
		if apiResp.PromptFeedback != nil && apiResp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s", domain.ErrExternalAPI, apiResp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: empty response", domain.ErrExternalAPI)
	}

	var sb strings.Builder
	for _, p := range apiResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty response (finish reason %s)", domain.ErrExternalAPI, apiResp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

// parseResponse checks the answer is JSON and re-indents it, keeping the
// key order the model produced.
func parseResponse(text string) ([]byte, error) {
	raw := []byte(strings.TrimSpace(text))
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("%w: model response is not JSON: %v", domain.ErrParse, err)
	}
	return out.Bytes(), nil
}
