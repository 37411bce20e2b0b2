package main

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/comigor/ridechat/internal/contact"
)

func contactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contact",
		Short: "Fill in the contact form and show the submission confirmation",
		RunE:  runContact,
	}
}

type promptField struct {
	label string
	value string
}

func (f *promptField) Clear() { f.value = "" }

// confirmationBox prints the confirmation and reports when it is hidden again.
type confirmationBox struct {
	out    io.Writer
	once   sync.Once
	hidden chan struct{}
}

func (b *confirmationBox) Show() {
	fmt.Fprintln(b.out, "Thank you! Your message has been sent.")
}

func (b *confirmationBox) Hide() {
	b.once.Do(func() { close(b.hidden) })
}

// terminalSubmit has no default action to suppress.
type terminalSubmit struct{}

func (terminalSubmit) PreventDefault() {}

func runContact(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	fields := []*promptField{{label: "Name"}, {label: "Email"}, {label: "Subject"}, {label: "Message"}}
	for _, f := range fields {
		fmt.Fprintf(out, "%s: ", f.label)
		if in.Scan() {
			f.value = in.Text()
		}
	}
	if err := in.Err(); err != nil {
		return err
	}

	box := &confirmationBox{out: out, hidden: make(chan struct{})}
	ack := contact.New(contact.Form{
		Confirmation: box,
		Name:         fields[0],
		Email:        fields[1],
		Subject:      fields[2],
		Message:      fields[3],
	}, contact.WithDelay(cfg.Contact.ConfirmDelay))
	ack.Submit(terminalSubmit{})

	select {
	case <-box.hidden:
	case <-cmd.Context().Done():
	}
	return nil
}
