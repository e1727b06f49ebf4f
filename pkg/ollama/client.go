package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/glasses-detector/pkg/inference"
	"github.com/menta2k/glasses-detector/pkg/processing"
	"github.com/menta2k/glasses-detector/pkg/types"
)

// DefaultTimeout bounds a single classification when the caller sets no deadline
const DefaultTimeout = 30 * time.Second

// Client classifies frames with a vision model served by Ollama
type Client struct {
	client    *api.Client
	model     string
	prompt    string
	processor *processing.Processor
}

var _ inference.Engine = (*Client)(nil)

// NewClient creates a new Ollama client
func NewClient(ollamaURL, model string) (*Client, error) {
	// Parse the provided URL
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host required", ollamaURL)
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	// Create base URL from the provided URL (removing path like /api/chat)
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client:    api.NewClient(baseURL, http.DefaultClient),
		model:     model,
		prompt:    inference.ScoresPrompt,
		processor: processing.NewProcessor(processing.FitStretch, 90),
	}, nil
}

// Infer sends the frame to the model and parses the two class scores from its reply
func (c *Client) Infer(ctx context.Context, tensor []uint8) (types.Scores, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	img, err := processing.TensorImage(tensor, types.InputSize, types.InputSize)
	if err != nil {
		return types.Scores{}, err
	}
	imgBytes, err := c.processor.EncodeJPEG(img)
	if err != nil {
		return types.Scores{}, fmt.Errorf("failed to encode frame: %w", err)
	}

	streamFalse := false
	options := map[string]any{
		"temperature": 0,
	}

	// Optimize for MiniCPM-V 4.x if that's the model being used
	modelLower := strings.ToLower(c.model)
	if strings.Contains(modelLower, "minicpm-v4") || strings.Contains(modelLower, "minicpm-v-4") {
		options["num_ctx"] = 2048
	}

	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: c.prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream:  &streamFalse,
		Format:  json.RawMessage(`"json"`),
		Options: options,
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return types.Scores{}, fmt.Errorf("ollama chat error: %w", err)
	}

	if responseContent == "" {
		return types.Scores{}, fmt.Errorf("empty response from ollama")
	}

	return inference.ParseScores(responseContent)
}

// Close releases nothing; the underlying HTTP client is shared
func (c *Client) Close() error {
	return nil
}
