package assistant

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ArkConfig selects the Ark hosted model.
type ArkConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// NewArkChatModel builds an eino chat model backed by Ark.
func NewArkChatModel(ctx context.Context, cfg ArkConfig) (model.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ark: api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ark: model is required")
	}

	arkCfg := &ark.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		Region:  cfg.Region,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	}
	if cfg.MaxTokens > 0 {
		v := cfg.MaxTokens
		arkCfg.MaxTokens = &v
	}
	if cfg.Temperature > 0 {
		v := cfg.Temperature
		arkCfg.Temperature = &v
	}
	if cfg.TopP > 0 {
		v := cfg.TopP
		arkCfg.TopP = &v
	}
	return ark.NewChatModel(ctx, arkCfg)
}

// EinoCompleter runs a system/history/query prompt through an eino chain.
type EinoCompleter struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

var _ Completer = (*EinoCompleter)(nil)

// NewEinoCompleter compiles the prompt chain around chatModel.
func NewEinoCompleter(ctx context.Context, chatModel model.ChatModel) (*EinoCompleter, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile assistant chain: %w", err)
	}
	return &EinoCompleter{chain: runnable}, nil
}

// Complete implements Completer.
func (c *EinoCompleter) Complete(ctx context.Context, system string, history []Turn, query string) (string, error) {
	out, err := c.chain.Invoke(ctx, map[string]any{
		"system":  system,
		"history": toSchema(history),
		"query":   query,
	})
	if err != nil {
		return "", fmt.Errorf("invoke assistant chain: %w", err)
	}
	return out.Content, nil
}

func toSchema(turns []Turn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(t.Content, nil))
		default:
			out = append(out, schema.UserMessage(t.Content))
		}
	}
	return out
}
