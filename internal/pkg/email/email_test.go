package email

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"testing"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/jobqueue"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []*Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg *Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

type recordingEnqueuer struct {
	args river.JobArgs
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, args river.JobArgs) (int64, error) {
	r.args = args
	return 1, nil
}

func sendJob(args SendArgs) *river.Job[SendArgs] {
	return &river.Job[SendArgs]{JobRow: &rivertype.JobRow{Kind: JobTypeSend, Attempt: 1, MaxAttempts: 3}, Args: args}
}

func TestRendererRendersEveryTemplate(t *testing.T) {
	r, err := NewRenderer("https://placeintern.example")
	require.NoError(t, err)

	data := map[string]any{
		"email": "s@x.in", "temporaryPassword": "Tmp12345", "audience": "student", "mentorName": "Dr. Kaur",
		"academicYear": "2024-25", "link": "/student/mentor", "count": 3, "roleTitle": "Trainee", "companyName": "Acme",
		"status": "APPROVED", "remarks": "", "period": "2025-03", "grievanceId": 7, "subject": "Stipend", "level": "FACULTY",
		"reportType": "students", "rowCount": 12,
	}
	for name := range subjects {
		msg, err := r.Render(name, mail.Address{Name: "Aman Singh", Address: "aman@x.in"}, data)
		require.NoError(t, err, name)
		assert.Equal(t, subjects[name], msg.Subject)
		assert.Contains(t, msg.TextContent, "Hello Aman Singh")
		assert.Contains(t, msg.HTMLContent, "<html>")
	}
}

func TestRendererEscapesHTML(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	msg, err := r.Render(TemplateApplicationStatus, mail.Address{Address: "a@b.in"}, map[string]any{
		"roleTitle": "<script>", "companyName": "Acme", "status": "REJECTED", "remarks": "x",
	})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTMLContent, "<script>")
	assert.Contains(t, msg.TextContent, "<script>")
	assert.Contains(t, msg.TextContent, "Hello a@b.in")
}

func TestRendererUnknownTemplate(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)
	_, err = r.Render("nope", mail.Address{Address: "a@b.in"}, nil)
	assert.Error(t, err)
}

func TestDispatcherQueuesSendJob(t *testing.T) {
	q := &recordingEnqueuer{}
	d := NewDispatcher(q)

	user := &models.User{Email: "p@x.in", FirstName: "Pooja", LastName: "Rani"}
	require.NoError(t, d.Send(context.Background(), user, TemplateWelcome, map[string]any{"email": "p@x.in"}))

	p, ok := q.args.(SendArgs)
	require.True(t, ok)
	assert.Equal(t, JobTypeSend, p.Kind())
	assert.Equal(t, jobqueue.QueueEmail, p.InsertOpts().Queue)
	assert.Equal(t, "p@x.in", p.ToAddress)
	assert.Equal(t, "Pooja Rani", p.ToName)

	assert.Error(t, d.Send(context.Background(), user, "unknown", nil))
}

func TestSendWorkerRendersAndSends(t *testing.T) {
	r, err := NewRenderer("http://fe")
	require.NoError(t, err)
	sender := &recordingSender{}

	err = NewSendWorker(r, sender).Work(context.Background(), sendJob(SendArgs{
		ToAddress: "s@x.in", ToName: "Simran",
		Template: TemplatePasswordReset, Data: map[string]any{"temporaryPassword": "Zx9!abcd"},
	}))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "s@x.in", sender.sent[0].To.Address)
	assert.True(t, strings.Contains(sender.sent[0].TextContent, "Zx9!abcd"))
}

func TestSendWorkerErrors(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)
	ctx := context.Background()

	bad := NewSendWorker(r, &recordingSender{}).Work(ctx, sendJob(SendArgs{ToAddress: "a@b.in", Template: "missing"}))
	assert.True(t, jobqueue.IsPermanent(bad))

	bad = NewSendWorker(r, &recordingSender{}).Work(ctx, sendJob(SendArgs{ToAddress: "not-an-address", Template: TemplateWelcome}))
	assert.True(t, jobqueue.IsPermanent(bad))

	// delivery failures are retried
	failing := &recordingSender{err: errors.New("smtp down")}
	err = NewSendWorker(r, failing).Work(ctx, sendJob(SendArgs{ToAddress: "a@b.in", Template: TemplateWelcome, Data: map[string]any{}}))
	require.Error(t, err)
	assert.False(t, jobqueue.IsPermanent(err))
}

func TestBuildMIMEBody(t *testing.T) {
	body, ct, err := buildMIMEBody(&Message{TextContent: "plain", HTMLContent: "<p>html</p>"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ct, "multipart/alternative; boundary="))
	assert.Contains(t, body, "plain")
	assert.Contains(t, body, "<p>html</p>")
}

func TestNewSender(t *testing.T) {
	s, err := NewSender(Config{Provider: "log"})
	require.NoError(t, err)
	assert.IsType(t, LogSender{}, s)

	s, err = NewSender(Config{Provider: "smtp"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	s, err = NewSender(Config{Provider: "sendgrid", SendgridKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &SendgridSender{}, s)

	_, err = NewSender(Config{Provider: "pigeon"})
	assert.Error(t, err)
}
