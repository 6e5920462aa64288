package gateway_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krishna-kudari/llmgate/gateway"
)

func TestCharEstimator_Input(t *testing.T) {
	est := gateway.DefaultEstimator()

	tests := []struct {
		name     string
		messages []gateway.Message
		want     int64
	}{
		{
			name:     "empty content floors at one token",
			messages: []gateway.Message{{Role: "user", Content: ""}},
			want:     1,
		},
		{
			name:     "short content floors at one token",
			messages: []gateway.Message{{Role: "user", Content: "hi"}},
			want:     1,
		},
		{
			name:     "four chars per token",
			messages: []gateway.Message{{Role: "user", Content: strings.Repeat("a", 400)}},
			want:     100,
		},
		{
			name: "content summed across messages",
			messages: []gateway.Message{
				{Role: "system", Content: strings.Repeat("a", 40)},
				{Role: "user", Content: strings.Repeat("b", 40)},
			},
			want: 20,
		},
		{
			name:     "truncating division",
			messages: []gateway.Message{{Role: "user", Content: strings.Repeat("a", 7)}},
			want:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &gateway.ChatCompletionRequest{Model: "gpt-4", Messages: tt.messages}
			assert.Equal(t, tt.want, est.EstimateInput(req))
		})
	}
}

func TestCharEstimator_Output(t *testing.T) {
	req := &gateway.ChatCompletionRequest{Model: "gpt-4"}

	assert.Equal(t, int64(50), gateway.DefaultEstimator().EstimateOutput(req))

	custom := &gateway.CharEstimator{CharsPerToken: 4, OutputTokens: 200}
	assert.Equal(t, int64(200), custom.EstimateOutput(req))

	zero := &gateway.CharEstimator{}
	assert.Equal(t, int64(50), zero.EstimateOutput(req), "zero value falls back to default")
}
