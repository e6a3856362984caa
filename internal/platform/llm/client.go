// Package llm delegates candidate-mapping generation to an external
// large-language-model service. The service is untrusted: its output is
// parsed structurally here and always re-validated by the mapping
// auditor before any data is loaded.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hri/hri/internal/domain/mapping"
)

// Suggester proposes a candidate mapping for a set of source headers and
// a small sample of rows. Implementations make exactly one upstream call
// per invocation; transient failures surface to the caller unretried.
type Suggester interface {
	SuggestMapping(ctx context.Context, headers []string, sample []mapping.Row) (mapping.Mapping, error)
}

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient implements Suggester against the Google Generative
// Language REST API.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	schema     mapping.Schema
	log        zerolog.Logger
}

func NewGeminiClient(apiKey, model string, schema mapping.Schema, log zerolog.Logger) *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      model,
		schema:     schema,
		log:        log,
	}
}

// WithBaseURL points the client at a different endpoint. Used by tests.
func (c *GeminiClient) WithBaseURL(url string) *GeminiClient {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) SuggestMapping(ctx context.Context, headers []string, sample []mapping.Row) (mapping.Mapping, error) {
	prompt, err := c.buildPrompt(headers, sample)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call mapping service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read mapping service response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mapping service returned status %d", resp.StatusCode)
	}

	var gr geminiResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return nil, fmt.Errorf("decode mapping service response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("mapping service returned no candidates")
	}

	return ParseMappingText(gr.Candidates[0].Content.Parts[0].Text)
}

func (c *GeminiClient) buildPrompt(headers []string, sample []mapping.Row) (string, error) {
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return "", err
	}
	sampleJSON, err := json.Marshal(sample)
	if err != nil {
		return "", err
	}
	schemaJSON, err := json.MarshalIndent(c.schema, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a data integration expert. Given the headers and sample rows of a tabular health-record file, ")
	b.WriteString("return a JSON object {\"mappings\": {...}} mapping each relevant source column to a column of the normalized schema below. ")
	b.WriteString("A mapping value is either a single source header or a list of source headers whose values should be concatenated. ")
	b.WriteString("Map only the provided headers. Source headers that fit no schema column go under the reserved table \"extras\". ")
	b.WriteString("Do not map identifiers or timestamps.\n\n")
	fmt.Fprintf(&b, "Headers: %s\n", headerJSON)
	fmt.Fprintf(&b, "Sample rows: %s\n\n", sampleJSON)
	fmt.Fprintf(&b, "Target schema (table -> columns):\n%s\n", schemaJSON)
	return b.String(), nil
}

// ParseMappingText extracts the mapping structure from a model reply,
// tolerating a ```json fenced block around the payload.
func ParseMappingText(text string) (mapping.Mapping, error) {
	payload := stripFences(text)

	var envelope struct {
		Mappings mapping.Mapping `json:"mappings"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return nil, fmt.Errorf("malformed mapping payload: %w", err)
	}
	if len(envelope.Mappings) == 0 {
		// Some replies omit the envelope and return the mapping directly.
		var m mapping.Mapping
		if err := json.Unmarshal([]byte(payload), &m); err != nil || len(m) == 0 {
			return nil, fmt.Errorf("mapping payload declares no tables")
		}
		return m, nil
	}
	return envelope.Mappings, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		text = text[i+3:]
		text = strings.TrimPrefix(text, "json")
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	}
	return strings.TrimSpace(text)
}
