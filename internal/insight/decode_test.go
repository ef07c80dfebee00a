package insight

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanResponse_FencedJSONWithRawNewline(t *testing.T) {
	raw := "```json\n{\"a\":\"line1\nline2\"}\n```"

	cleaned := CleanResponse(raw)
	assert.Equal(t, `{"a":"line1\nline2"}`, cleaned)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(cleaned), &got))
	assert.Equal(t, "line1\nline2", got["a"])
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already clean", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "  \n{\"a\":1}\n\t ", `{"a":1}`},
		{"plain fence", "```\n[1,2]\n```", `[1,2]`},
		{"uppercase info string", "```JSON\n{}\n```", `{}`},
		{"fence on one line", "```json {\"a\":1}```", `{"a":1}`},
		{"prose around fence", "Here you go:\n```json\n{\"a\":1}\n```\nEnjoy!", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"newline outside string untouched", "{\n\"a\": 1\n}", "{\n\"a\": 1\n}"},
		{"tab and CR inside string", "{\"a\":\"x\ty\r\"}", `{"a":"x\ty\r"}`},
		{"other control char", "{\"a\":\"bell\x07\"}", `{"a":"bell\u0007"}`},
		{"escaped quote keeps state", "{\"a\":\"say \\\"hi\\\"\nok\"}", `{"a":"say \"hi\"\nok"}`},
		{"escaped backslash before quote", "{\"a\":\"c:\\\\\",\"b\":\"x\ny\"}", `{"a":"c:\\","b":"x\ny"}`},
		{"already escaped newline", `{"a":"x\ny"}`, `{"a":"x\ny"}`},
		{"backticks inside a value", "{\"a\":\"wrap it in ``` fences\"}", "{\"a\":\"wrap it in ``` fences\"}"},
		{"fenced value with backticks", "```json\n{\"a\":\"use ```go blocks\"}\n```", "{\"a\":\"use ```go blocks\"}"},
		{"backticks after escaped quote", "{\"a\":\"say \\\"```\\\" twice\"}", "{\"a\":\"say \\\"```\\\" twice\"}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanResponse(tc.raw))
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	var v struct {
		Items []string `json:"items"`
	}
	require.NoError(t, decodeResponse("```json\n{\"items\":[\"a\nb\"]}\n```", &v))
	assert.Equal(t, []string{"a\nb"}, v.Items)

	var quoted struct {
		A string `json:"a"`
	}
	require.NoError(t, decodeResponse("{\"a\":\"wrap it in ``` fences\"}", &quoted))
	assert.Equal(t, "wrap it in ``` fences", quoted.A)

	assert.Error(t, decodeResponse("", &v))
	assert.Error(t, decodeResponse("I could not find any patterns.", &v))
	assert.Error(t, decodeResponse(`{"items":["a"]} {"items":["b"]}`, &v), "trailing value")
	assert.Error(t, decodeResponse(`{"items":"not a list"}`, &v))
}
