package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCode(t *testing.T) {
	cases := []struct {
		url      string
		expected string
	}{
		{
			url:      "http://localhost:8080/auth_redirect?state=867b92e6-d20b-4824-92b6-031f73fb2c79&code=f7cb60b0-443a-4647-9770-b97d30866a24",
			expected: "f7cb60b0-443a-4647-9770-b97d30866a24",
		},
		{
			url:      "https://example.com/auth_redirect?state=S&code=C",
			expected: "C",
		},
		{
			url:      "https://example.com/auth_redirect?code=C&state=S",
			expected: "C",
		},
		{
			url:      "https://example.com/auth_redirect?state=S",
			expected: "",
		},
		{
			url:      "",
			expected: "",
		},
		{
			url:      "://not a url",
			expected: "",
		},
	}
	for _, c := range cases {
		t.Run(c.url, func(t *testing.T) {
			assert.Equal(t, c.expected, GetCode(c.url))
		})
	}
}

func TestInput(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "newline", in: "https://x/cb?code=1\nignored\n", expected: "https://x/cb?code=1"},
		{name: "crlf", in: "https://x/cb?code=2\r\n", expected: "https://x/cb?code=2"},
		{name: "no newline", in: "https://x/cb?code=3", expected: "https://x/cb?code=3"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var out bytes.Buffer
			line, err := Input(strings.NewReader(c.in), &out, "paste: ")
			assert.Nil(t, err)
			assert.Equal(t, c.expected, line)
			assert.Equal(t, "paste: ", out.String())
		})
	}
}

func TestInputEmptyStream(t *testing.T) {
	_, err := Input(strings.NewReader(""), &bytes.Buffer{}, "paste: ")
	assert.Error(t, err)
}
