// Package contact acknowledges contact-form submissions locally. Nothing is sent
// anywhere: the form is cleared and a confirmation is shown for a few seconds.
package contact

import (
	"time"

	"github.com/comigor/ridechat/internal/logger"
)

// DefaultDelay is how long the confirmation stays visible.
const DefaultDelay = 5000 * time.Millisecond

// SubmitEvent is the submission being intercepted.
type SubmitEvent interface {
	PreventDefault()
}

// Element is something that can be shown and hidden, like the confirmation box.
type Element interface {
	Show()
	Hide()
}

// Field is a clearable input.
type Field interface {
	Clear()
}

// Form holds the handles the acknowledger touches. Any of them may be nil.
type Form struct {
	Confirmation Element
	Name         Field
	Email        Field
	Subject      Field
	Message      Field
}

// Acknowledger handles contact form submissions
type Acknowledger struct {
	form     Form
	delay    time.Duration
	schedule func(d time.Duration, f func())
}

// Option configures an Acknowledger.
type Option func(*Acknowledger)

// WithDelay overrides the confirmation delay.
func WithDelay(d time.Duration) Option {
	return func(a *Acknowledger) {
		if d > 0 {
			a.delay = d
		}
	}
}

// WithScheduler replaces time.AfterFunc for deferring the hide.
func WithScheduler(schedule func(d time.Duration, f func())) Option {
	return func(a *Acknowledger) { a.schedule = schedule }
}

// New creates an Acknowledger bound to form.
func New(form Form, opts ...Option) *Acknowledger {
	a := &Acknowledger{
		form:  form,
		delay: DefaultDelay,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit suppresses the default action, shows the confirmation, clears the
// four fields and hides the confirmation again after the delay.
func (a *Acknowledger) Submit(ev SubmitEvent) {
	if ev != nil {
		ev.PreventDefault()
	}

	confirmation := a.form.Confirmation
	if confirmation == nil {
		logger.L.Warn("contact form has no confirmation element")
	} else {
		confirmation.Show()
	}

	fields := []struct {
		name  string
		field Field
	}{
		{"name", a.form.Name},
		{"email", a.form.Email},
		{"subject", a.form.Subject},
		{"message", a.form.Message},
	}
	for _, f := range fields {
		if f.field == nil {
			logger.L.Warn("contact form field missing", "field", f.name)
			continue
		}
		f.field.Clear()
	}

	if confirmation != nil {
		a.schedule(a.delay, confirmation.Hide)
	}
}
