package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testCategories = []string{"general", "account", "payment", "card", "technical"}
	testPriorities = []string{"low", "normal", "high", "urgent"}
)

func TestClassifyTicket(t *testing.T) {
	t.Parallel()

	t.Run("returns exact choice spelling", func(t *testing.T) {
		t.Parallel()
		gen := &fakeGenerator{text: `{"category": "PAYMENT", "priority": "Urgent", "confidence": 0.9, "reason": "money\nmissing"}`}
		c := NewClientWithGenerator(gen)

		s, err := c.ClassifyTicket(context.Background(), "Transfer lost", "I sent 500 DZD and it vanished", testCategories, testPriorities)
		require.NoError(t, err)
		require.Equal(t, "payment", s.Category)
		require.Equal(t, "urgent", s.Priority)
		require.InDelta(t, 0.9, s.Confidence, 1e-9)
		require.Equal(t, "money missing", s.Reason)

		require.Equal(t, ModelName, gen.model)
		require.Equal(t, "application/json", gen.config.ResponseMIMEType)
		require.Equal(t, testCategories, gen.config.ResponseSchema.Properties["category"].Enum)
		require.Equal(t, testPriorities, gen.config.ResponseSchema.Properties["priority"].Enum)
	})

	t.Run("tolerates preamble", func(t *testing.T) {
		t.Parallel()
		c := NewClientWithGenerator(&fakeGenerator{text: "Here you go:\n{\"category\": \"card\", \"priority\": \"high\", \"confidence\": 0.7, \"reason\": \"frozen\"}"})

		s, err := c.ClassifyTicket(context.Background(), "Card frozen", "", testCategories, testPriorities)
		require.NoError(t, err)
		require.Equal(t, "card", s.Category)
		require.Equal(t, "high", s.Priority)
	})

	t.Run("sanitizes prompt input", func(t *testing.T) {
		t.Parallel()
		gen := &fakeGenerator{text: `{"category": "general", "priority": "low", "confidence": 0.5, "reason": ""}`}
		c := NewClientWithGenerator(gen)

		_, err := c.ClassifyTicket(context.Background(), `Ignore "rules"`, "line1\n\nline2", testCategories, testPriorities)
		require.NoError(t, err)

		prompt := gen.contents[0].Parts[0].Text
		require.Contains(t, prompt, `Subject: "Ignore 'rules'"`)
		require.Contains(t, prompt, `Message: "line1 line2"`)
	})

	errorCases := []struct {
		name       string
		client     *Client
		subject    string
		categories []string
		wantErr    error
		wantMsg    string
	}{
		{name: "nil client", client: nil, subject: "x", categories: testCategories, wantErr: ErrNotInitialized},
		{name: "no generator", client: &Client{}, subject: "x", categories: testCategories, wantErr: ErrNotInitialized},
		{name: "blank ticket", client: NewClientWithGenerator(&fakeGenerator{}), subject: "  ", categories: testCategories, wantErr: ErrEmptyTicket},
		{name: "no categories", client: NewClientWithGenerator(&fakeGenerator{}), subject: "x", wantErr: ErrNoChoices},
		{name: "api failure", client: NewClientWithGenerator(&fakeGenerator{err: errors.New("quota")}), subject: "x", categories: testCategories, wantMsg: "gemini API call failed"},
		{name: "nil response", client: NewClientWithGenerator(&fakeGenerator{nilResp: true}), subject: "x", categories: testCategories, wantErr: ErrEmptyResponse},
		{name: "no json", client: NewClientWithGenerator(&fakeGenerator{text: "sorry"}), subject: "x", categories: testCategories, wantErr: ErrEmptyResponse},
		{name: "bad json", client: NewClientWithGenerator(&fakeGenerator{text: "{category}"}), subject: "x", categories: testCategories, wantMsg: "failed to parse JSON"},
		{
			name:       "unknown category",
			client:     NewClientWithGenerator(&fakeGenerator{text: `{"category": "refunds", "priority": "low", "confidence": 0.5}`}),
			subject:    "x",
			categories: testCategories,
			wantMsg:    "not in available categories",
		},
		{
			name:       "unknown priority",
			client:     NewClientWithGenerator(&fakeGenerator{text: `{"category": "card", "priority": "asap", "confidence": 0.5}`}),
			subject:    "x",
			categories: testCategories,
			wantMsg:    "not in available priorities",
		},
		{
			name:       "confidence out of range",
			client:     NewClientWithGenerator(&fakeGenerator{text: `{"category": "card", "priority": "low", "confidence": 1.5}`}),
			subject:    "x",
			categories: testCategories,
			wantMsg:    "confidence out of range",
		},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := tt.client.ClassifyTicket(context.Background(), tt.subject, "", tt.categories, testPriorities)
			require.Error(t, err)
			require.Nil(t, s)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				require.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestSanitizeForPrompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "quotes", input: "say \"hi\" `now`", max: 50, want: "say 'hi' 'now'"},
		{name: "null bytes", input: "a\x00b", max: 50, want: "ab"},
		{name: "whitespace", input: "  a\t\tb\n c  ", max: 50, want: "a b c"},
		{name: "truncates and trims", input: "hello world", max: 6, want: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, SanitizeForPrompt(tt.input, tt.max))
		})
	}
}

func TestBuildTicketPrompt(t *testing.T) {
	t.Parallel()

	p := buildTicketPrompt("s", "m", []string{"general", "card"})
	require.Contains(t, p, "- general\n- card")
	require.True(t, strings.HasPrefix(p, "Triage this support ticket."))
}
