package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"runtime"
	"slices"
	"strings"
)

// Recipients holds the fixed distribution lists.
type Recipients struct {
	To      []string `yaml:"to"`
	Inbound string   `yaml:"inbound"`
	Cc      []string `yaml:"cc"`
}

func DefaultRecipients() Recipients {
	return Recipients{
		To:      []string{"xdr1-lead-out@id-logistics.com", "xdr1-flowcontrol@id-logistics.com"},
		Inbound: "xdr1-in@id-logistics.com",
		Cc:      []string{"mcal@id-logistics.com"},
	}
}

// Route computes the To and Cc lists. The Inbound address joins To when either
// department is Inbound; the agency email joins Cc when an agency supplied the
// substitute.
func (r Recipients) Route(absent, substitute Department, agencyEmail string) (to, cc []string) {
	to = slices.Clone(r.To)
	if r.Inbound != "" && (absent == DepartmentInbound || substitute == DepartmentInbound) {
		to = append(to, r.Inbound)
	}
	cc = slices.Clone(r.Cc)
	if agencyEmail != "" {
		cc = append(cc, agencyEmail)
	}
	return to, cc
}

// MailRequest is handed to the system mail composer.
type MailRequest struct {
	To      []string
	Cc      []string
	Subject string
	Body    string
}

// trailing spaces are part of the message
const mailBodyTemplate = "Dzień dobry,  \n" +
	"\n" +
	"W dniu %s proszę o udzielenie dnia wolnego dla %s, dział %s – powód: %s. Na zastępstwo przyjdzie do pracy %s, dział %s. \n" +
	"\n" +
	"Pozdrawiam, "

func mailSubject(date string, shift Shift) string {
	return fmt.Sprintf("Informacje o zastępstwie / %s / %s / Personnel Service", date, shift)
}

// MailtoURL renders the request as a mailto: link with percent-encoded
// parameters (spaces as %20, as mail clients expect).
func (m MailRequest) MailtoURL() string {
	var b strings.Builder
	b.WriteString("mailto:")
	b.WriteString(strings.Join(m.To, ","))

	params := []string{}
	if len(m.Cc) > 0 {
		params = append(params, "cc="+strings.Join(m.Cc, ","))
	}
	params = append(params,
		"subject="+encodeComponent(m.Subject),
		"body="+encodeComponent(m.Body),
	)

	b.WriteString("?")
	b.WriteString(strings.Join(params, "&"))
	return b.String()
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Mailer opens a compose window for a request. It cannot tell whether the
// draft is ever sent.
type Mailer interface {
	Compose(ctx context.Context, req MailRequest) error
}

// CommandMailer passes the mailto URL to the OS URL opener.
type CommandMailer struct {
	command []string
}

func NewCommandMailer(command []string) *CommandMailer {
	if len(command) == 0 {
		command = defaultOpenerCommand()
	}
	return &CommandMailer{command: command}
}

func (m *CommandMailer) Compose(ctx context.Context, req MailRequest) error {
	args := append(slices.Clone(m.command[1:]), req.MailtoURL())
	out, err := exec.CommandContext(ctx, m.command[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", m.command[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func defaultOpenerCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler"}
	default:
		return []string{"xdg-open"}
	}
}

// PrintMailer writes the mailto URL instead of opening it.
type PrintMailer struct {
	w io.Writer
}

func (m *PrintMailer) Compose(ctx context.Context, req MailRequest) error {
	_, err := fmt.Fprintln(m.w, req.MailtoURL())
	return err
}
