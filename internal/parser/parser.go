// Package parser turns free-form Spanish reminder requests into
// structured data through an LLM collaborator. The rest of the system
// only depends on the output contract: a message plus exactly one of an
// absolute time or a 5-field recurrence rule.
package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"telegram-reminder-bot/internal/format"
)

// ErrUnparseable is returned when the collaborator could not extract
// structured reminder data from the input.
var ErrUnparseable = errors.New("could not parse reminder text")

// Result is the parsing collaborator's output contract.
type Result struct {
	Message string
	FireAt  *time.Time // set for one-shot reminders
	Rule    string     // 5-field cron spec, set for recurring reminders
}

type Parser interface {
	Parse(ctx context.Context, text string) (*Result, error)
}

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

const promptTemplate = `Eres un asistente que convierte comandos de recordatorio en español a un JSON con estos campos:
- texto: string (lo que hay que recordar).
- fecha: ISO 8601 con zona -05:00, o "" si el recordatorio es recurrente.
    • Si el usuario menciona día de la semana (lunes, martes, ...) sin número de día, usa la próxima fecha que corresponda a ese día.
    • Si solo menciona hora sin "AM"/"PM", asume PM.
    • Si solo hay hora (y no día ni fecha), usa la fecha actual.
- recurrente: booleano.
- cron: expresión cron de 5 campos "MM HH * * DOW" si es recurrente, o "".

La fecha actual es %s (UTC-05:00).

— Si el comando fuera "revisar correo lunes a las 9", devolverías fecha = el próximo lunes a las 09:00 PM.
— Si el comando fuera "tomar agua todos los días a las 8am", recurrente = true y cron = "00 08 * * *".

Analiza este comando y devuelve solo el JSON válido:
"%s"`

// JSON Schema for structured output
var resultSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"texto": {
			"type": "string",
			"description": "What to remind, without date or recurrence words"
		},
		"fecha": {
			"type": "string",
			"description": "ISO 8601 timestamp with -05:00 offset, empty when recurring"
		},
		"recurrente": {
			"type": "boolean",
			"description": "Whether the reminder repeats"
		},
		"cron": {
			"type": "string",
			"description": "5-field cron expression, empty when not recurring"
		}
	},
	"required": ["texto", "fecha", "recurrente", "cron"],
	"additionalProperties": false
}`)

type wireResult struct {
	Texto      string `json:"texto"`
	Fecha      string `json:"fecha"`
	Recurrente bool   `json:"recurrente"`
	Cron       string `json:"cron"`
}

func (c *Client) Parse(ctx context.Context, text string) (*Result, error) {
	today := time.Now().In(format.Location).Format("2006-01-02")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(promptTemplate, today, text),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "reminder",
				Schema: resultSchema,
				Strict: true,
			},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrUnparseable
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if wire.Texto == "" {
		return nil, ErrUnparseable
	}

	result := &Result{Message: wire.Texto, Rule: wire.Cron}
	if wire.Fecha != "" {
		fireAt, err := time.Parse(time.RFC3339, wire.Fecha)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q", ErrUnparseable, wire.Fecha)
		}
		result.FireAt = &fireAt
	}
	return result, nil
}
