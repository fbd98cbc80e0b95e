// Package support opens and lists customer support tickets.
package support

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/config"
	"gitlab.com/yelinaung/wallet/internal/gemini"
	"gitlab.com/yelinaung/wallet/internal/logger"
	"gitlab.com/yelinaung/wallet/internal/models"
	"gitlab.com/yelinaung/wallet/internal/validation"
)

// Ticket validation messages.
const (
	MsgSubjectRequired = "subject is required"
	MsgMessageRequired = "message is required"
	MsgSubjectTooLong  = "subject is too long (maximum 120 characters)"
	MsgCategoryInvalid = "support category is invalid"
	MsgPriorityInvalid = "support priority is invalid"
)

// MaxSubjectLength is the longest subject accepted, in characters.
const MaxSubjectLength = 120

// DefaultListLimit is the page size used by List when limit is not positive.
const DefaultListLimit = 50

// StatusOpen is the status of a freshly created ticket.
const StatusOpen = "open"

// Suggester triages a ticket when the user left category or priority blank.
// *gemini.Client satisfies it.
type Suggester interface {
	ClassifyTicket(ctx context.Context, subject, message string, categories, priorities []string) (*gemini.TicketSuggestion, error)
}

var _ Suggester = (*gemini.Client)(nil)

// Ticket is a support request as typed by the user. Category and Priority
// may be empty.
type Ticket struct {
	Subject  string
	Message  string
	Category string
	Priority string
}

// Service opens tickets against the backend.
type Service struct {
	store     backend.SupportStore
	suggester Suggester
	timeout   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithSuggester enables automatic triage. A nil suggester is ignored.
func WithSuggester(s Suggester) Option {
	return func(svc *Service) {
		if s != nil {
			svc.suggester = s
		}
	}
}

// WithTimeout overrides the submit timeout.
func WithTimeout(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.timeout = d
		}
	}
}

// New returns a Service.
func New(store backend.SupportStore, opts ...Option) *Service {
	s := &Service{store: store, timeout: config.DefaultSubmitTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and submits a ticket for userID. A blank category or
// priority is filled by the suggester, or by general/normal when triage is
// unavailable or fails.
func (s *Service) Create(ctx context.Context, userID string, t Ticket) (*models.SupportMessage, error) {
	msg, err := s.prepare(userID, t)
	if err != nil {
		return nil, err
	}

	if msg.Category == "" || msg.Priority == "" {
		s.triage(ctx, &msg)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := s.store.CreateSupportMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to create support message: %w", err)
	}

	log := logger.Component("support")
	log.Info().
		Str("user", logger.HashUserID(userID)).
		Str("category", string(created.Category)).
		Str("priority", string(created.Priority)).
		Msg("Support ticket created")
	return created, nil
}

func (s *Service) prepare(userID string, t Ticket) (models.SupportMessage, error) {
	msg := models.SupportMessage{
		UserID:  userID,
		Subject: strings.TrimSpace(t.Subject),
		Message: strings.TrimSpace(t.Message),
		Status:  StatusOpen,
	}

	var errs []string
	switch {
	case msg.Subject == "":
		errs = append(errs, MsgSubjectRequired)
	case len([]rune(msg.Subject)) > MaxSubjectLength:
		errs = append(errs, MsgSubjectTooLong)
	}
	if msg.Message == "" {
		errs = append(errs, MsgMessageRequired)
	}
	if strings.TrimSpace(t.Category) != "" {
		c, err := models.ParseSupportCategory(t.Category)
		if err != nil {
			errs = append(errs, MsgCategoryInvalid)
		}
		msg.Category = c
	}
	if strings.TrimSpace(t.Priority) != "" {
		p, err := models.ParseSupportPriority(t.Priority)
		if err != nil {
			errs = append(errs, MsgPriorityInvalid)
		}
		msg.Priority = p
	}

	if len(errs) > 0 {
		return models.SupportMessage{}, &validation.Error{Messages: errs}
	}
	return msg, nil
}

// triage fills blank fields. User-chosen values are never overwritten.
func (s *Service) triage(ctx context.Context, msg *models.SupportMessage) {
	if s.suggester != nil {
		suggestion, err := s.suggester.ClassifyTicket(ctx, msg.Subject, msg.Message,
			enumStrings(models.SupportCategories), enumStrings(models.SupportPriorities))
		if err != nil {
			log := logger.Component("support")
			log.Warn().Err(err).Msg("Ticket triage failed, using defaults")
		} else {
			if msg.Category == "" {
				msg.Category = models.SupportCategory(suggestion.Category)
			}
			if msg.Priority == "" {
				msg.Priority = models.SupportPriority(suggestion.Priority)
			}
		}
	}

	if msg.Category == "" {
		msg.Category = models.SupportGeneral
	}
	if msg.Priority == "" {
		msg.Priority = models.PriorityNormal
	}
}

// List returns up to limit of the user's tickets, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]models.SupportMessage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msgs, err := s.store.ListSupportMessages(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list support messages: %w", err)
	}
	return msgs, nil
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
