/*
 *  Copyright 2021 qitoi
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

package classify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultModel      = "gpt-4o-mini"
	defaultMaxDim     = 768
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2
)

type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Categories []string
	MaxDim     int
	Timeout    time.Duration
	MaxRetries *int
	HTTPClient *http.Client
}

// OpenAI classifies images with a vision-capable chat completions model,
// asking it for one probability per category.
type OpenAI struct {
	client     openaigo.Client
	model      string
	categories []string
	maxDim     int
	prompt     string
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai classifier: api key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	categories := cfg.Categories
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	maxDim := cfg.MaxDim
	if maxDim <= 0 {
		maxDim = defaultMaxDim
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := defaultMaxRetries
	if cfg.MaxRetries != nil {
		retries = *cfg.MaxRetries
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(retries),
		option.WithRequestTimeout(timeout),
	}
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL+"/"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAI{
		client:     openaigo.NewClient(opts...),
		model:      model,
		categories: categories,
		maxDim:     maxDim,
		prompt:     buildPrompt(categories),
	}, nil
}

func buildPrompt(categories []string) string {
	quoted := make([]string, len(categories))
	for i, c := range categories {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return "You label images posted on social media. " +
		"Categories: " + strings.Join(quoted, ", ") + ". " +
		"Reply with a single JSON object mapping every category to the probability that the image belongs to it. " +
		"Probabilities are between 0 and 1 and sum to 1. No other text."
}

func (c *OpenAI) Classify(ctx context.Context, image []byte) (Label, error) {
	img, err := prepareImage(image, c.maxDim)
	if err != nil {
		return Label{}, fmt.Errorf("prepare image: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img)

	resp, err := c.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(c.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(c.prompt),
			openaigo.UserMessage([]openaigo.ChatCompletionContentPartUnionParam{
				openaigo.TextContentPart("Classify this image."),
				openaigo.ImageContentPart(openaigo.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
	})
	if err != nil {
		return Label{}, err
	}
	if len(resp.Choices) == 0 {
		return Label{}, errors.New("openai classifier: empty response")
	}

	scores, err := parseScores(resp.Choices[0].Message.Content, c.categories)
	if err != nil {
		return Label{}, err
	}
	label, ok := Best(c.categories, scores)
	if !ok {
		return Label{}, fmt.Errorf("openai classifier: no known category in %q", resp.Choices[0].Message.Content)
	}
	return label, nil
}

// parseScores reads the model's JSON answer. Keys are matched to
// categories case-insensitively and the scores are normalized to sum to 1.
func parseScores(content string, categories []string) (map[string]float64, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("openai classifier: no JSON object in %q", content)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("openai classifier: %w", err)
	}
	if nested, ok := raw["scores"].(map[string]any); ok {
		raw = nested
	}

	scores := make(map[string]float64)
	sum := 0.0
	for _, c := range categories {
		for k, v := range raw {
			if !strings.EqualFold(strings.TrimSpace(k), c) {
				continue
			}
			p, ok := v.(float64)
			if !ok || p < 0 {
				p = 0
			}
			scores[c] = p
			sum += p
			break
		}
	}
	if sum > 0 {
		for c, p := range scores {
			scores[c] = p / sum
		}
	}
	return scores, nil
}
