package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// DefaultExternalDepartment is assigned to agency-supplied substitutes.
const DefaultExternalDepartment = DepartmentOutbound

const (
	msgFillAllFields = "Proszę wypełnić wszystkie pola"
	msgSelectAgency  = "Proszę wybrać agencję"
	msgInvalidShift  = "Nieprawidłowa zmiana"
	msgInvalidReason = "Nieprawidłowy powód"
)

// Form is the state of one substitution report before it is submitted.
type Form struct {
	AbsentEmployee       string
	AbsentDepartment     Department
	Reason               string
	Shift                Shift
	SubstituteEmployee   string
	SubstituteDepartment Department
	Agency               string
	Date                 time.Time

	// SubstituteExternal is derived by Classify.
	SubstituteExternal bool
}

func NewForm(now time.Time) Form {
	return Form{
		AbsentDepartment:     DepartmentOutbound,
		Reason:               ReasonPrivate,
		Shift:                ShiftDay,
		SubstituteDepartment: DepartmentOutbound,
		Date:                 now,
	}
}

// Classify derives the substitute's kind from the roster. A name matching an
// internal employee fills the department from that record and clears the
// agency. Any other non-empty name is an external hire: the agency becomes
// required and the department falls back to DefaultExternalDepartment. A
// known external record pre-fills its agency. The absent employee's
// department is filled the same way when the name is on the roster.
func (f *Form) Classify(roster []Employee) {
	if emp, ok := findInternal(roster, f.AbsentEmployee); ok {
		f.AbsentDepartment = emp.Department
	}

	name := strings.TrimSpace(f.SubstituteEmployee)
	if name == "" {
		f.SubstituteExternal = false
		return
	}

	if emp, ok := findInternal(roster, name); ok {
		f.SubstituteExternal = false
		f.SubstituteDepartment = emp.Department
		f.Agency = ""
		return
	}

	f.SubstituteExternal = true
	if f.SubstituteDepartment == "" {
		f.SubstituteDepartment = DefaultExternalDepartment
	}
	if f.Agency == "" {
		for _, e := range roster {
			if e.IsExternal && e.Name == name && e.Agency != "" {
				f.Agency = e.Agency
				break
			}
		}
	}
}

// RequiresAgency reports whether the agency field must be filled.
func (f *Form) RequiresAgency() bool {
	return f.SubstituteExternal
}

func findInternal(roster []Employee, name string) (Employee, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Employee{}, false
	}
	for _, e := range roster {
		if !e.IsExternal && e.Name == name {
			return e, true
		}
	}
	return Employee{}, false
}

// Validate checks required fields in order and returns the first failure.
func (f *Form) Validate() error {
	if strings.TrimSpace(f.AbsentEmployee) == "" ||
		f.Shift == "" ||
		strings.TrimSpace(f.SubstituteEmployee) == "" {
		return newValidationError("required", msgFillAllFields)
	}
	if f.SubstituteExternal && strings.TrimSpace(f.Agency) == "" {
		return newValidationError("agency", msgSelectAgency)
	}
	if !f.Shift.Valid() {
		return newValidationError("shift", msgInvalidShift)
	}
	if !slices.Contains(Reasons, f.Reason) {
		return newValidationError("reason", msgInvalidReason)
	}
	return nil
}

// FormattedDate returns the form date as DD.MM.YYYY.
func (f *Form) FormattedDate() string {
	return f.Date.Format(DateLayout)
}

// Compose builds the mail for a validated form. agency is the zero value for
// internal substitutes.
func (f *Form) Compose(recipients Recipients, agency Agency) MailRequest {
	date := f.FormattedDate()

	substitute := strings.TrimSpace(f.SubstituteEmployee)
	if f.SubstituteExternal && agency.Name != "" {
		substitute = fmt.Sprintf("%s (%s)", substitute, agency.Name)
	}

	to, cc := recipients.Route(f.AbsentDepartment, f.SubstituteDepartment, agency.Email)

	return MailRequest{
		To:      to,
		Cc:      cc,
		Subject: mailSubject(date, f.Shift),
		Body: fmt.Sprintf(mailBodyTemplate,
			date,
			strings.TrimSpace(f.AbsentEmployee), f.AbsentDepartment,
			f.Reason,
			substitute, f.SubstituteDepartment,
		),
	}
}

// Entry snapshots the form as a journal entry created at now.
func (f *Form) Entry(now time.Time) JournalEntry {
	entry := JournalEntry{
		ID:                   JournalEntryID(now.UnixMilli()),
		Date:                 f.FormattedDate(),
		AbsentEmployee:       strings.TrimSpace(f.AbsentEmployee),
		AbsentDepartment:     f.AbsentDepartment,
		Shift:                f.Shift,
		SubstituteEmployee:   strings.TrimSpace(f.SubstituteEmployee),
		SubstituteDepartment: f.SubstituteDepartment,
		Reason:               f.Reason,
		Timestamp:            now.UnixMilli(),
	}
	if f.SubstituteExternal {
		entry.Agency = f.Agency
	}
	return entry
}

// FilterNames returns the names containing query, ignoring case.
func FilterNames(names []string, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	matches := make([]string, 0, len(names))
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), q) {
			matches = append(matches, n)
		}
	}
	return matches
}

// SubmitResult describes what a submission wrote and sent.
type SubmitResult struct {
	Entry      JournalEntry
	Mail       MailRequest
	Registered *Employee
}

// Submitter runs the submission: validate, route, journal, register, mail.
type Submitter struct {
	roster     *RosterStore
	journal    *JournalStore
	agencies   *AgencyDirectory
	mailer     Mailer
	recipients Recipients
	now        func() time.Time
	logger     *slog.Logger
}

func NewSubmitter(roster *RosterStore, journal *JournalStore, agencies *AgencyDirectory, mailer Mailer, recipients Recipients, logger *slog.Logger) *Submitter {
	return &Submitter{
		roster:     roster,
		journal:    journal,
		agencies:   agencies,
		mailer:     mailer,
		recipients: recipients,
		now:        time.Now,
		logger:     logger.With("component", "form"),
	}
}

// Submit validates the form and, only if it passes, writes the journal entry,
// registers a new external substitute and hands the mail off. Once validation
// passes every step runs: a journal failure is returned wrapping
// ErrJournalSave and a hand-off failure wrapping ErrMailHandoff, joined when
// both happen. Writes that succeeded stay.
func (s *Submitter) Submit(ctx context.Context, form Form) (SubmitResult, error) {
	form.Classify(s.roster.List(ctx))
	if err := form.Validate(); err != nil {
		return SubmitResult{}, err
	}

	var agency Agency
	if form.SubstituteExternal {
		a, err := s.agencies.Find(form.Agency)
		if err != nil {
			return SubmitResult{}, newValidationError("agency", msgSelectAgency)
		}
		agency = a
	}

	res := SubmitResult{Mail: form.Compose(s.recipients, agency)}

	var failures []error
	entry, err := s.journal.Append(ctx, form.Entry(s.now()))
	if err != nil {
		s.logger.Error("error saving journal entry", "err", err)
		failures = append(failures, fmt.Errorf("%w: %v", ErrJournalSave, err))
	} else {
		res.Entry = entry
	}

	if form.SubstituteExternal {
		emp, added, err := s.roster.AddExternal(ctx, form.SubstituteEmployee, agency.Name)
		switch {
		case err != nil:
			s.logger.Error("error registering external employee", "name", form.SubstituteEmployee, "err", err)
		case added:
			res.Registered = &emp
		}
	}

	if err := s.mailer.Compose(ctx, res.Mail); err != nil {
		s.logger.Error("mail handoff failed", "err", err)
		failures = append(failures, fmt.Errorf("%w: %v", ErrMailHandoff, err))
	}

	return res, errors.Join(failures...)
}
