// Package llm implements the quiz generation gateway on an OpenAI-compatible
// chat completion API, forcing a single structured tool call.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"notes-quiz-service/internal/domain"
)

// Config selects the endpoint and model.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Generator turns notes or a page photo into a quiz.
type Generator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewGenerator creates a generator. An empty model defaults to GPT-4o.
func NewGenerator(cfg Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &Generator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: cfg.Timeout,
	}
}

// Generate calls the model once. Any failure, including a malformed payload,
// is reported as domain.ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Quiz, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	log.Printf("generating %d %s questions (%s mode, %s)", req.Count, req.Difficulty, req.Mode(), req.Language)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(req),
			},
			userMessage(req),
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        submitQuizTool,
					Description: "Submit the generated quiz",
					Parameters:  quizSchema(),
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type: openai.ToolTypeFunction,
			Function: openai.ToolFunction{
				Name: submitQuizTool,
			},
		},
	})
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: chat completion: %w", domain.ErrGenerationFailed, err)
	}

	quiz, err := parseQuiz(resp)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	quiz.Difficulty = req.Difficulty
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	for i, q := range quiz.Questions {
		if len(q.Options) != 4 {
			log.Printf("question %d has %d options, expected 4", i, len(q.Options))
		}
	}

	log.Printf("generated quiz %q with %d questions", quiz.Title, len(quiz.Questions))
	return quiz, nil
}

func userMessage(req domain.GenerationRequest) openai.ChatCompletionMessage {
	if req.Mode() != domain.ModeImage {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: userPrompt(req),
		}
	}
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.Image),
					Detail: openai.ImageURLDetailAuto,
				},
			},
			{
				Type: openai.ChatMessagePartTypeText,
				Text: userPrompt(req),
			},
		},
	}
}

func parseQuiz(resp openai.ChatCompletionResponse) (domain.Quiz, error) {
	if len(resp.Choices) == 0 {
		return domain.Quiz{}, fmt.Errorf("no choices in response")
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return domain.Quiz{}, fmt.Errorf("no tool calls in response")
	}
	call := choice.Message.ToolCalls[0]
	if call.Function.Name != submitQuizTool {
		return domain.Quiz{}, fmt.Errorf("unexpected tool call: %s", call.Function.Name)
	}

	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(call.Function.Arguments), &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse tool arguments: %w", err)
	}
	return quiz, nil
}
