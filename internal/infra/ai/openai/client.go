package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	aidomain "github.com/guyp-app/plantcare-api/internal/domain/ai"
)

const maxTokens = 1024

// System instructions mirror the mobile contract: strict JSON, Spanish, the
// fixed disclaimer always included.
const systemExplain = `Eres un asistente especializado en salud de plantas. ` +
	`No realizas diagnóstico profesional, pero explicas de forma sencilla ` +
	`posibles causas, recomendaciones de cuidado y señales de alerta. ` +
	`Responde SIEMPRE en español claro y estructurado. ` +
	`Devuelve un único objeto JSON con: mensaje, autocuidado, banderas_rojas, ` +
	`cuando_buscar_atencion y descargo. Sin markdown ni comentarios. ` +
	`Siempre agrega en descargo: '` + aidomain.Disclaimer + `'`

const systemSummary = `Eres un asistente que genera resúmenes sobre salud de plantas. ` +
	`Devuelve un único objeto JSON con: ` +
	`'tema' (máximo 3 palabras), ` +
	`'resumen' (1-2 párrafos), ` +
	`'descargo'. Sin markdown ni comentarios. ` +
	`Siempre incluye en descargo: '` + aidomain.Disclaimer + `'`

// Client wraps the generative backend. On any transport, provider, or schema
// failure both calls return the deterministic fallback payload plus an error
// that callers treat as "enrichment did not complete", never as fatal.
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// Generate produces the full structured explanation for a prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (aidomain.Explanation, error) {
	content, err := c.complete(ctx, systemExplain, prompt, 0.3)
	if err != nil {
		zap.L().Warn("ai generate failed", zap.Error(err))
		return aidomain.FallbackExplanation(), fmt.Errorf("generate: %w", err)
	}

	var out aidomain.Explanation
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		zap.L().Warn("ai generate returned malformed JSON", zap.Error(err))
		return aidomain.FallbackExplanation(), fmt.Errorf("generate: malformed output: %w", err)
	}
	if !out.Valid() {
		return aidomain.FallbackExplanation(), fmt.Errorf("generate: output missing mandatory fields")
	}
	return out, nil
}

// GenerateSummary derives the condensed payload from a full explanation.
func (c *Client) GenerateSummary(ctx context.Context, full aidomain.Explanation) (aidomain.Summary, error) {
	prompt := summaryPrompt(full)

	content, err := c.complete(ctx, systemSummary, prompt, 0.2)
	if err != nil {
		zap.L().Warn("ai summary failed", zap.Error(err))
		return aidomain.FallbackSummary(full), fmt.Errorf("generate summary: %w", err)
	}

	var out aidomain.Summary
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		zap.L().Warn("ai summary returned malformed JSON", zap.Error(err))
		return aidomain.FallbackSummary(full), fmt.Errorf("generate summary: malformed output: %w", err)
	}
	if !out.Valid() {
		return aidomain.FallbackSummary(full), fmt.Errorf("generate summary: output missing mandatory fields")
	}
	return out, nil
}

// resolvedModel returns the configured model, defaulting to gpt-4o-mini.
func (c *Client) resolvedModel() string {
	if c.Model == "" {
		return "gpt-4o-mini"
	}
	return c.Model
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	resp, err := c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.resolvedModel(),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty response from provider")
	}
	return resp.Choices[0].Message.Content, nil
}

func summaryPrompt(full aidomain.Explanation) string {
	return fmt.Sprintf(`Resume esta información sobre la salud de una planta:

MENSAJE: %s
AUTOCUIDADO: %s
BANDERAS ROJAS: %s
CUANDO BUSCAR ATENCIÓN: %s

Genera un JSON con: tema, resumen, descargo.`,
		full.Message,
		strings.Join(full.SelfCare, ", "),
		strings.Join(full.RedFlags, ", "),
		full.WhenToSeekHelp,
	)
}
