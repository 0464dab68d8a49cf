package simplepublish

import (
	"bytes"
	"context"
	"html/template"
	"strings"

	"github.com/google/uuid"
)

var feedbackMailTemplate = template.Must(template.New("feedback").Parse(
	`<p>New message from <strong>{{.Name}}</strong> &lt;{{.Email}}&gt;</p>
<blockquote>{{.Message}}</blockquote>
<p><small>Received {{.CreatedAt.Format "2006-01-02 15:04 MST"}}</small></p>
`))

func (s *service) SubmitFeedback(ctx context.Context, req SubmitFeedbackRequest) (*Feedback, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if err := req.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	feedback := &Feedback{
		ID:      uuid.New(),
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}
	if err := s.repository.CreateFeedback(ctx, feedback); err != nil {
		return nil, persistenceError("feedback", feedback.ID.String(), "create", err)
	}
	s.logger.Info("feedback received", "id", feedback.ID)

	s.fire("feedback_received", feedback.ID.String(), func() error {
		return s.eventSink.FeedbackReceived(ctx, feedback)
	})

	s.notifyAdmin(ctx, feedback)
	return feedback, nil
}

func (s *service) ListFeedback(ctx context.Context) ([]*Feedback, error) {
	entries, err := s.repository.ListFeedback(ctx)
	if err != nil {
		return nil, persistenceError("feedback", "*", "list", err)
	}
	return entries, nil
}

// notifyAdmin mails the admin address. The feedback is already stored, so
// failures only leave Notified false.
func (s *service) notifyAdmin(ctx context.Context, feedback *Feedback) {
	if s.mailer == nil || s.adminEmail == "" {
		s.logger.Debug("feedback notification skipped, no mailer configured", "id", feedback.ID)
		return
	}

	var body bytes.Buffer
	if err := feedbackMailTemplate.Execute(&body, feedback); err != nil {
		s.logger.Error("failed to render feedback mail", "id", feedback.ID, "error", err)
		return
	}

	delivery, err := s.mailer.Send(ctx, MailMessage{
		To:       s.adminEmail,
		Subject:  "New feedback from " + feedback.Name,
		HTMLBody: body.String(),
	})
	if err != nil {
		s.logger.Warn("feedback notification failed", "id", feedback.ID, "error", err)
		return
	}

	feedback.Notified = true
	s.logger.Info("feedback notification sent", "id", feedback.ID, "delivery_id", delivery.ID)
}
