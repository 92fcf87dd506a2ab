package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/soyeahso/mrbooky/internal/llm"
	"github.com/soyeahso/mrbooky/internal/logging"
)

// InfoSystemPrompt steers the LLM for city questions.
const InfoSystemPrompt = `You are Mr Booky, the friendly assistant of Taxi Express Patras.
Answer questions about Patras (hotels, beaches, food, museums, public services) briefly.
Always reply in the user's language. Keep numbers, addresses, URLs and phone numbers exactly as given.
Use at most 2-3 emojis. If you are not sure, say so and suggest calling 2610 450000.`

// InfoTool answers city questions from the Patras answers backend and
// falls back to an LLM.
type InfoTool struct {
	api   *restClient
	llm   llm.Client
	model string
	log   *logging.Logger
}

// NewInfoTool creates an info tool. Either source may be absent.
func NewInfoTool(baseURL string, hc *http.Client, client llm.Client, model string, log *logging.Logger) *InfoTool {
	return &InfoTool{api: newRESTClient(baseURL, hc), llm: client, model: model, log: log.Sub("tools.info")}
}

func (t *InfoTool) Name() string { return "patras_info" }

func (t *InfoTool) Invoke(ctx context.Context, req Request) (Result, error) {
	var errs []error
	if t.api.configured() {
		answer, err := t.ask(ctx, req.Text)
		if err == nil && answer != "" {
			return Result{Reply: answer}, nil
		}
		if err == nil {
			err = errors.New("empty answer")
		}
		t.log.Warn().Err(err).Msg("info backend failed")
		errs = append(errs, err)
	}
	if t.llm != nil {
		answer, err := Ask(ctx, t.llm, t.model, InfoSystemPrompt, req.Text, req.Context)
		if err == nil {
			return Result{Reply: answer}, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Result{}, errors.New("no info source configured")
	}
	return Result{}, errors.Join(errs...)
}

func (t *InfoTool) ask(ctx context.Context, question string) (string, error) {
	var raw map[string]any
	if err := t.api.post(ctx, "/", map[string]string{"question": question}, &raw); err != nil {
		return "", err
	}
	if msg := firstString(raw, "error"); msg != "" {
		return "", errors.New(msg)
	}
	if s := fulfillmentText(raw); s != "" {
		return s, nil
	}
	return firstString(raw, "answer", "reply", "text"), nil
}

// Ask sends one question to an LLM with the last exchanges as history.
// history holds "U: ..." and "A: ..." lines as kept in the session.
func Ask(ctx context.Context, client llm.Client, model, system, question string, history []string) (string, error) {
	if len(history) > 4 {
		history = history[len(history)-4:]
	}
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, line := range history {
		switch {
		case strings.HasPrefix(line, "U: "):
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: strings.TrimPrefix(line, "U: ")})
		case strings.HasPrefix(line, "A: "):
			msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: strings.TrimPrefix(line, "A: ")})
		}
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: question})

	temp := 0.7
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Model:       model,
		System:      system,
		Messages:    msgs,
		MaxTokens:   600,
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", client.Name(), err)
	}
	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return "", fmt.Errorf("%s: empty completion", client.Name())
	}
	return answer, nil
}
