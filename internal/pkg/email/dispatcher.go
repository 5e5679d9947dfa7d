package email

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/riverqueue/river"

	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/pkg/jobqueue"
)

// JobTypeSend is the job type that delivers one templated email
const JobTypeSend = "email.send"

// Enqueuer is the part of the job queue used for email
type Enqueuer interface {
	Enqueue(ctx context.Context, args river.JobArgs) (int64, error)
}

// SendArgs is the email.send job payload
type SendArgs struct {
	ToAddress string         `json:"toAddress"`
	ToName    string         `json:"toName"`
	Template  string         `json:"template"`
	Data      map[string]any `json:"data"`
}

// Kind implements river.JobArgs
func (SendArgs) Kind() string { return JobTypeSend }

// InsertOpts implements river.JobArgsWithInsertOpts
func (SendArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: jobqueue.QueueEmail}
}

// Dispatcher turns email requests into queued jobs
type Dispatcher struct {
	queue Enqueuer
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(queue Enqueuer) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// Send queues template for delivery to user
func (d *Dispatcher) Send(ctx context.Context, user *models.User, template string, data map[string]any) error {
	if _, ok := subjects[template]; !ok {
		return fmt.Errorf("unknown email template %q", template)
	}
	args := SendArgs{
		ToAddress: user.Email,
		ToName:    user.FullName(),
		Template:  template,
		Data:      data,
	}
	if _, err := d.queue.Enqueue(ctx, args); err != nil {
		return fmt.Errorf("queue %s email: %w", template, err)
	}
	return nil
}

// SendWorker renders and delivers email.send jobs
type SendWorker struct {
	river.WorkerDefaults[SendArgs]
	renderer *Renderer
	sender   Sender
}

// NewSendWorker creates the email.send worker
func NewSendWorker(renderer *Renderer, sender Sender) *SendWorker {
	return &SendWorker{renderer: renderer, sender: sender}
}

// Work renders the template and hands the message to the sender. Bad
// recipients and templates are not retried.
func (w *SendWorker) Work(ctx context.Context, job *river.Job[SendArgs]) error {
	p := job.Args
	to, err := mail.ParseAddress(p.ToAddress)
	if err != nil {
		return jobqueue.Permanent(fmt.Errorf("invalid recipient %q: %w", p.ToAddress, err))
	}
	to.Name = p.ToName

	msg, err := w.renderer.Render(p.Template, *to, p.Data)
	if err != nil {
		return jobqueue.Permanent(err)
	}
	return w.sender.Send(ctx, msg)
}
