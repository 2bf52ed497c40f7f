package generator

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/adaptlearn/backend/internal/models"
)

// LLMClient is the interface both generator implementations satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Generator wraps an LLMClient and adds question-bank batch methods.
type Generator struct {
	llm   LLMClient
	model string
}

func NewGenerator() *Generator {
	var llm LLMClient
	model := "mock"

	if os.Getenv("USE_CLI_GENERATOR") == "true" {
		cliPath := os.Getenv("CLAUDE_CLI_PATH")
		if cliPath == "" {
			cliPath = "claude"
		}
		llm = NewCLIClient(cliPath)
		model = "claude-cli"
		log.Println("Generator using Claude CLI (local plan)")
	} else if os.Getenv("MOCK_GENERATOR") == "true" {
		llm = NewMockClient()
		log.Println("Generator using mock data")
	} else {
		model = os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-opus-4-5-20251101"
		}
		llm = NewAPIClient(model)
		log.Println("Generator using Anthropic API:", model)
	}

	return &Generator{llm: llm, model: model}
}

func (g *Generator) ModelName() string {
	return g.model
}

func (g *Generator) GenerateQuestions(ctx context.Context, subject models.Subject, band models.GradeBand, difficulty float64, count int) (*GeneratedBatch, *LLMResponse, error) {
	systemPrompt := SystemPrompt()
	userPrompt := BuildUserPrompt(subject, band, difficulty, count)

	resp, err := g.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, fmt.Errorf("generate question batch: %w", err)
	}

	batch, err := ParseResponse(resp.Content)
	if err != nil {
		return nil, resp, fmt.Errorf("parse generation response: %w", err)
	}

	return batch, resp, nil
}

// AssignDifficulty spreads stored questions around the requested target so a
// batch does not land on a single point of the 0-10 scale.
func AssignDifficulty(target float64) float64 {
	d := target + (rand.Float64()-0.5)*1.5
	if d < 0 {
		d = 0
	}
	if d > 10 {
		d = 10
	}
	return math.Round(d*10) / 10
}

// ── APIClient — Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(0.8),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("Retrying Anthropic API call in %v (attempt %d)", sleepDuration, attempt+1)
			time.Sleep(sleepDuration)
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient — Local Development ─────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	mockJSON := buildMockJSON()
	return &LLMResponse{
		Content:      mockJSON,
		PromptTokens: 1200,
		OutputTokens: 2400,
	}, nil
}

func buildMockJSON() string {
	correctAnswers := []string{"A", "B", "C", "D"}
	contexts := []string{
		"a school bake sale", "a field trip budget", "a classroom garden",
		"a library reading log", "a science fair project", "a recycling drive",
	}

	questions := "["
	for i := 0; i < 6; i++ {
		correctID := correctAnswers[i%4]
		context := contexts[i%len(contexts)]

		if i > 0 {
			questions += ","
		}

		choices := "["
		for j, id := range correctAnswers {
			isCorrect := id == correctID
			label := "incorrect"
			misconception := `"partial_answer"`
			if isCorrect {
				label = "correct"
				misconception = "null"
			}
			if j > 0 {
				choices += ","
			}
			reasonVerb := "skips a step in"
			if isCorrect {
				reasonVerb = "follows every step of"
			}
			choices += fmt.Sprintf(`{"id":"%s","text":"[Mock] This answer about %s is %s for the question.","explanation":"[Mock] This choice is %s because it %s the working for %s.","misconception":%s}`,
				id, context, label, label, reasonVerb, context, misconception)
		}
		choices += "]"

		questions += fmt.Sprintf(`{"stem":"[Mock] Students planning %s collected data across a week and must reason about the totals involved in %s. Which statement best matches the data?","choices":%s,"correct_answer_id":"%s","explanation":"[Mock] Choice %s is the only statement consistent with the data about %s."}`,
			context, context, choices, correctID, correctID, context)
	}
	questions += "]"

	return fmt.Sprintf(`{"questions":%s}`, questions)
}
