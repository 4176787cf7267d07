// Package contact validates contact form submissions and records accepted
// ones as JSON lines. There is no delivery: the log line is the outcome.
package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/keithlinneman/devopsplatform-web/internal/log"
	"github.com/keithlinneman/devopsplatform-web/internal/xerrors"
)

// Field caps, in characters. Mirrored in the Submission tags.
const (
	MaxName    = 100
	MaxEmail   = 254
	MaxSubject = 64
	MaxMessage = 5000
)

// entryTimeLayout is YYYY-MM-DD HH:MM:SS.
const entryTimeLayout = time.DateTime

// Subjects offered by the form, in display order.
var Subjects = []Subject{
	{Value: "suporte-tecnico", Label: "Suporte Técnico"},
	{Value: "vendas", Label: "Vendas"},
	{Value: "parceria", Label: "Parcerias"},
	{Value: "feedback", Label: "Feedback"},
	{Value: "outro", Label: "Outro"},
}

type Subject struct {
	Value string
	Label string
}

// Submission is the trimmed form input.
type Submission struct {
	Name    string `validate:"required,max=100"`
	Email   string `validate:"required,email,max=254"`
	Subject string `validate:"required,max=64"`
	Message string `validate:"required,max=5000"`
}

// FromForm reads and trims the four form fields. Missing fields are empty.
func FromForm(form url.Values) Submission {
	return Submission{
		Name:    strings.TrimSpace(form.Get("name")),
		Email:   strings.TrimSpace(form.Get("email")),
		Subject: strings.TrimSpace(form.Get("subject")),
		Message: strings.TrimSpace(form.Get("message")),
	}
}

// Entry is one line of contact.log.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	IP        string `json:"ip"`
}

// Reason classifies a rejected submission.
type Reason int

const (
	ReasonRequired Reason = iota + 1
	ReasonEmail
	ReasonTooLong
)

// Message is the user-facing text shown above the form.
func (r Reason) Message() string {
	switch r {
	case ReasonRequired:
		return "Todos os campos são obrigatórios."
	case ReasonEmail:
		return "Por favor, insira um email válido."
	case ReasonTooLong:
		return "Um ou mais campos excedem o tamanho máximo."
	default:
		return "Não foi possível processar sua mensagem."
	}
}

func (r Reason) String() string {
	switch r {
	case ReasonRequired:
		return "required"
	case ReasonEmail:
		return "email"
	case ReasonTooLong:
		return "too_long"
	default:
		return "unknown"
	}
}

// ValidationError is returned by Submit for input the user must fix.
type ValidationError struct {
	Reason Reason
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid contact submission: " + e.Reason.String() + " (" + strings.Join(e.Fields, ", ") + ")"
}

// SuccessMessage is shown after an accepted submission.
const SuccessMessage = "Mensagem enviada com sucesso! Entraremos em contato em breve."

// FailureMessage is shown when an accepted submission could not be recorded.
const FailureMessage = "Não foi possível registrar sua mensagem. Tente novamente mais tarde."

// Store appends one encoded entry. *logfile.Appender satisfies it.
type Store interface {
	Append(line []byte) error
}

type Service struct {
	store    Store
	validate *validator.Validate
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		loc:      time.Local,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Validate checks sub. Missing fields take precedence over a malformed
// email, which takes precedence over length violations.
func (s *Service) Validate(sub Submission) error {
	err := s.validate.Struct(sub)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return xerrors.Wrap(err, "validate contact submission")
	}

	byReason := map[Reason][]string{}
	for _, fe := range ves {
		var r Reason
		switch fe.Tag() {
		case "required":
			r = ReasonRequired
		case "email":
			r = ReasonEmail
		default:
			r = ReasonTooLong
		}
		byReason[r] = append(byReason[r], strings.ToLower(fe.Field()))
	}
	for _, r := range []Reason{ReasonRequired, ReasonEmail, ReasonTooLong} {
		if fields, ok := byReason[r]; ok {
			return &ValidationError{Reason: r, Fields: fields}
		}
	}
	return xerrors.New("validate contact submission: no classified errors")
}

// Submit validates sub and appends it with the client ip. A
// *ValidationError means the input was rejected; any other error means
// the entry could not be written.
func (s *Service) Submit(ctx context.Context, sub Submission, ip string) error {
	if err := s.Validate(sub); err != nil {
		return err
	}

	line, err := json.Marshal(Entry{
		Timestamp: s.now().In(s.loc).Format(entryTimeLayout),
		Name:      sub.Name,
		Email:     sub.Email,
		Subject:   sub.Subject,
		Message:   sub.Message,
		IP:        ip,
	})
	if err != nil {
		return xerrors.Wrap(err, "encode contact entry")
	}
	if err := s.store.Append(line); err != nil {
		return xerrors.Wrap(err, "record contact entry")
	}

	log.FromContext(ctx).Info(ctx, "contact submission recorded",
		"subject", sub.Subject,
		"message_bytes", len(sub.Message),
	)
	return nil
}
