package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gitlab.com/yelinaung/wallet/internal/logger"
	"google.golang.org/genai"
)

// Prompt input limits.
const (
	MaxSubjectLength = 120
	MaxMessageLength = 1000
	maxReasonLength  = 300
)

// DefaultClassifyTimeout bounds a single classification call.
const DefaultClassifyTimeout = 10 * time.Second

var (
	// ErrNotInitialized is returned when the client has no generator.
	ErrNotInitialized = errors.New("gemini client not initialized")
	// ErrEmptyTicket is returned when both subject and message are blank.
	ErrEmptyTicket = errors.New("ticket subject or message is required")
	// ErrNoChoices is returned when no categories or priorities are offered.
	ErrNoChoices = errors.New("categories and priorities are required")
	// ErrEmptyResponse is returned when the model produced no usable JSON.
	ErrEmptyResponse = errors.New("no JSON content in response")
)

// TicketSuggestion is the model's triage of a support ticket.
type TicketSuggestion struct {
	Category   string  `json:"category"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// ClassifyTicket picks one of categories and one of priorities for a ticket.
// The returned values use the exact spelling of the offered choices.
func (c *Client) ClassifyTicket(ctx context.Context, subject, message string, categories, priorities []string) (*TicketSuggestion, error) {
	if c == nil || c.generator == nil {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(subject) == "" && strings.TrimSpace(message) == "" {
		return nil, ErrEmptyTicket
	}
	if len(categories) == 0 || len(priorities) == 0 {
		return nil, ErrNoChoices
	}

	log := logger.Component("gemini").With().Str("ticket_hash", hashText(subject+"\n"+message)).Logger()
	log.Debug().Int("categories", len(categories)).Int("priorities", len(priorities)).Msg("Classifying support ticket")

	prompt := buildTicketPrompt(
		SanitizeForPrompt(subject, MaxSubjectLength),
		SanitizeForPrompt(message, MaxMessageLength),
		categories,
	)

	callCtx, cancel := context.WithTimeout(ctx, DefaultClassifyTimeout)
	defer cancel()

	resp, err := c.generator.GenerateContent(callCtx, c.model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}, ticketConfig(categories, priorities))
	if err != nil {
		log.Error().Err(err).Msg("Gemini ticket classification failed")
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}

	jsonText := extractJSON(resp.Text())
	if jsonText == "" {
		log.Warn().Msg("No JSON found in Gemini response")
		return nil, ErrEmptyResponse
	}

	var s TicketSuggestion
	if err := json.Unmarshal([]byte(jsonText), &s); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	category, ok := matchChoice(categories, s.Category)
	if !ok {
		return nil, fmt.Errorf("suggested category %q not in available categories", s.Category)
	}
	priority, ok := matchChoice(priorities, s.Priority)
	if !ok {
		return nil, fmt.Errorf("suggested priority %q not in available priorities", s.Priority)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return nil, fmt.Errorf("confidence out of range: %f", s.Confidence)
	}

	s.Category, s.Priority = category, priority
	s.Reason = SanitizeForPrompt(s.Reason, maxReasonLength)

	log.Debug().
		Str("category", s.Category).
		Str("priority", s.Priority).
		Float64("confidence", s.Confidence).
		Msg("Support ticket classified")
	return &s, nil
}

func ticketConfig(categories, priorities []string) *genai.GenerateContentConfig {
	temp := float32(0.2)
	return &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(300),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: "You triage customer support tickets for a digital wallet. Respond with a single JSON object only."},
			},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {
					Type:        genai.TypeString,
					Enum:        categories,
					Description: "The ticket category from the provided list",
				},
				"priority": {
					Type:        genai.TypeString,
					Enum:        priorities,
					Description: "How urgently the ticket needs an answer",
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Confidence score between 0 and 1",
				},
				"reason": {
					Type:        genai.TypeString,
					Description: "One short sentence explaining the choice",
				},
			},
			Required: []string{"category", "priority", "confidence", "reason"},
		},
	}
}

func buildTicketPrompt(subject, message string, categories []string) string {
	return fmt.Sprintf(`Triage this support ticket.

Subject: "%s"
Message: "%s"

Categories:
- %s

Rules:
- "payment" for recharges, withdrawals, transfers and conversions
- "card" for virtual card problems, "account" for login, profile and verification
- "urgent" only when money is missing or the account is blocked
- "low" for questions and feedback

Return JSON only:
{"category": "...", "priority": "...", "confidence": 0.0-1.0, "reason": "..."}`,
		subject, message, strings.Join(categories, "\n- "))
}

func matchChoice(choices []string, got string) (string, bool) {
	got = strings.TrimSpace(got)
	i := slices.IndexFunc(choices, func(c string) bool { return strings.EqualFold(c, got) })
	if i < 0 {
		return "", false
	}
	return choices[i], true
}

// extractJSON returns the outermost {...} span of text, or "" if none.
// Gemini sometimes wraps JSON in prose even with a JSON response type.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(text, "}")
	if end <= start {
		return ""
	}
	return text[start : end+1]
}

// SanitizeForPrompt strips characters that could break the prompt's quoting,
// collapses whitespace and truncates to maxLength bytes.
func SanitizeForPrompt(input string, maxLength int) string {
	input = strings.ReplaceAll(input, `"`, `'`)
	input = strings.ReplaceAll(input, "`", "'")
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.Join(strings.Fields(input), " ")

	if len(input) > maxLength {
		input = strings.TrimSpace(input[:maxLength])
	}
	return input
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
