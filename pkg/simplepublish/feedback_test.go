package simplepublish_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/repo/memory"
)

type stubMailer struct {
	err  error
	sent []simplepublish.MailMessage
}

func (m *stubMailer) Send(_ context.Context, msg simplepublish.MailMessage) (*simplepublish.MailDelivery, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, msg)
	return &simplepublish.MailDelivery{ID: "msg-1", AcceptedAt: time.Now()}, nil
}

func TestSubmitFeedback_NotifiesAdmin(t *testing.T) {
	ctx := context.Background()
	mailer := &stubMailer{}
	svc, err := simplepublish.NewFeedbackService(
		simplepublish.WithRepository(memory.New()),
		simplepublish.WithMailer(mailer),
		simplepublish.WithAdminEmail("admin@example.com"),
	)
	require.NoError(t, err)

	feedback, err := svc.SubmitFeedback(ctx, simplepublish.SubmitFeedbackRequest{
		Name:    "Ada <script>",
		Email:   " ada@example.com ",
		Message: "Great <b>post</b>",
	})
	require.NoError(t, err)
	assert.True(t, feedback.Notified)
	assert.Equal(t, "ada@example.com", feedback.Email)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "admin@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Ada")
	assert.Contains(t, msg.HTMLBody, "Great &lt;b&gt;post&lt;/b&gt;")
	assert.NotContains(t, msg.HTMLBody, "<script>")

	list, err := svc.ListFeedback(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, feedback.ID, list[0].ID)
}

func TestSubmitFeedback_MailFailureKeepsEntry(t *testing.T) {
	ctx := context.Background()
	svc, err := simplepublish.NewFeedbackService(
		simplepublish.WithRepository(memory.New()),
		simplepublish.WithMailer(&stubMailer{err: errors.New("smtp down")}),
		simplepublish.WithAdminEmail("admin@example.com"),
	)
	require.NoError(t, err)

	feedback, err := svc.SubmitFeedback(ctx, simplepublish.SubmitFeedbackRequest{
		Name: "Grace", Email: "grace@example.com", Message: "hello",
	})
	require.NoError(t, err)
	assert.False(t, feedback.Notified)

	list, err := svc.ListFeedback(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSubmitFeedback_WithoutMailer(t *testing.T) {
	svc, err := simplepublish.NewFeedbackService(simplepublish.WithRepository(memory.New()))
	require.NoError(t, err)

	feedback, err := svc.SubmitFeedback(context.Background(), simplepublish.SubmitFeedbackRequest{
		Name: "Linus", Email: "linus@example.com", Message: "hi",
	})
	require.NoError(t, err)
	assert.False(t, feedback.Notified)
}

func TestSubmitFeedback_Validation(t *testing.T) {
	svc, err := simplepublish.NewFeedbackService(simplepublish.WithRepository(memory.New()))
	require.NoError(t, err)

	tests := []struct {
		name  string
		req   simplepublish.SubmitFeedbackRequest
		field string
	}{
		{"bad email", simplepublish.SubmitFeedbackRequest{Name: "A", Email: "not-an-email", Message: "m"}, "email"},
		{"missing name", simplepublish.SubmitFeedbackRequest{Email: "a@example.com", Message: "m"}, "name"},
		{"blank message", simplepublish.SubmitFeedbackRequest{Name: "A", Email: "a@example.com", Message: "  "}, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitFeedback(context.Background(), tt.req)
			var verr *simplepublish.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
