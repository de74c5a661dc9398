package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	input []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	return schema.AssistantMessage("annyeong!", nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func (f *fakeChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func TestEinoCompleterBuildsPrompt(t *testing.T) {
	ctx := context.Background()
	fake := &fakeChatModel{}

	c, err := NewEinoCompleter(ctx, fake)
	require.NoError(t, err)

	out, err := c.Complete(ctx, "be nice", []Turn{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}, "favourite group?")
	require.NoError(t, err)
	assert.Equal(t, "annyeong!", out)

	require.Len(t, fake.input, 4)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Equal(t, "be nice", fake.input[0].Content)
	assert.Equal(t, schema.User, fake.input[1].Role)
	assert.Equal(t, schema.Assistant, fake.input[2].Role)
	assert.Equal(t, "favourite group?", fake.input[3].Content)
}

func TestNewArkChatModelRequiresCredentials(t *testing.T) {
	_, err := NewArkChatModel(context.Background(), ArkConfig{Model: "doubao"})
	assert.Error(t, err)
	_, err = NewArkChatModel(context.Background(), ArkConfig{APIKey: "k"})
	assert.Error(t, err)
}
