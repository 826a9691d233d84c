package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"

	"github.com/hibiken/asynq"

	"github.com/carreirahub/carreirahub/internal/rbac"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeWelcome is the task type for the registration welcome e-mail.
	TaskTypeWelcome = "mail:welcome"
)

// WelcomePayload describes the account that just registered.
type WelcomePayload struct {
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	Home      string    `json:"home,omitempty"`
}

// NewWelcomeTask constructs an Asynq task. The task ID is derived from the
// account so a retried registration never mails twice.
func NewWelcomeTask(payload WelcomePayload) (*asynq.Task, error) {
	if payload.Email == "" || payload.AccountID == "" {
		return nil, fmt.Errorf("jobs: welcome task requires account id and email")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeWelcome, data,
		asynq.TaskID("welcome:"+payload.AccountID),
		asynq.MaxRetry(5),
		asynq.Queue(QueueDefault)), nil
}

// Message is an outgoing e-mail.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers e-mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// WelcomeJob renders and sends the welcome e-mail.
type WelcomeJob struct {
	sender Sender
	logger *slog.Logger
}

// NewWelcomeJob constructs the handler for TaskTypeWelcome.
func NewWelcomeJob(sender Sender, logger *slog.Logger) *WelcomeJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &WelcomeJob{sender: sender, logger: logger}
}

// Handle processes TaskTypeWelcome tasks. Undecodable payloads are not retried.
func (j *WelcomeJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload WelcomePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("jobs: decode welcome payload: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.Email) == "" {
		return fmt.Errorf("jobs: welcome payload without e-mail: %w", asynq.SkipRetry)
	}
	msg, err := RenderWelcome(payload)
	if err != nil {
		return fmt.Errorf("jobs: render welcome: %v: %w", err, asynq.SkipRetry)
	}
	if err := j.sender.Send(ctx, msg); err != nil {
		return err
	}
	j.logger.Info("welcome mail sent",
		slog.String("account", payload.AccountID),
		slog.String("role", string(payload.Role)))
	return nil
}

var (
	welcomeText = texttemplate.Must(texttemplate.New("welcome.txt").Parse(
		`Olá, {{.Name}}!

Sua conta de {{.Label}} no CarreiraHub está pronta.
Acesse {{.Home}} para começar.
`))
	welcomeHTML = template.Must(template.New("welcome.html").Parse(
		`<p>Olá, {{.Name}}!</p>
<p>Sua conta de <strong>{{.Label}}</strong> no CarreiraHub está pronta.</p>
<p><a href="{{.Home}}">Começar agora</a></p>
`))
)

// RenderWelcome builds the welcome message for payload.
func RenderWelcome(payload WelcomePayload) (Message, error) {
	home := payload.Home
	if home == "" {
		home = rbac.FallbackHome
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = payload.Email
	}
	view := struct {
		Name, Label, Home string
	}{Name: name, Label: rbac.Label(payload.Role), Home: home}

	var text, html bytes.Buffer
	if err := welcomeText.Execute(&text, view); err != nil {
		return Message{}, err
	}
	if err := welcomeHTML.Execute(&html, view); err != nil {
		return Message{}, err
	}
	return Message{
		To:      payload.Email,
		Subject: "Bem-vindo ao CarreiraHub",
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
