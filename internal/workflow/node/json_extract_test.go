package node

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"plain object", `{"responses":[]}`, `{"responses":[]}`},
		{"leading chatter", `Sure! {"responses":[{"planet":"sun"}]} hope that helps`, `{"responses":[{"planet":"sun"}]}`},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare array", `[{"planet":"moon","message":"hey"}]`, `[{"planet":"moon","message":"hey"}]`},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSONObject(tc.in))
		})
	}
}

func TestExtractJSONObjectNonJSONPassesThrough(t *testing.T) {
	assert.Equal(t, "I refuse to answer in JSON", ExtractJSONObject("I refuse to answer in JSON"))
}

func TestIsTransientLLMError(t *testing.T) {
	assert.True(t, IsTransientLLMError(context.DeadlineExceeded))
	assert.True(t, IsTransientLLMError(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.True(t, IsTransientLLMError(errors.New("error, status code: 503, message: overloaded")))
	assert.True(t, IsTransientLLMError(errors.New("Post \"https://api\": dial tcp: connection refused")))
	assert.False(t, IsTransientLLMError(errors.New("error, status code: 401, message: invalid api key")))
	assert.False(t, IsTransientLLMError(nil))
}

func TestIsResponseFormatUnsupportedError(t *testing.T) {
	assert.True(t, IsResponseFormatUnsupportedError(errors.New("Invalid parameter: response_format")))
	assert.False(t, IsResponseFormatUnsupportedError(errors.New("status code: 500")))
}
