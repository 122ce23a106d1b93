package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"
)

type App struct {
	cfg    *Config
	logger *slog.Logger

	bus       *Bus
	roster    *RosterStore
	agencies  *AgencyDirectory
	journal   *JournalStore
	submitter *Submitter

	prompter Prompter
	out      io.Writer
	errOut   io.Writer

	// roster snapshot for pickers, dropped whenever the roster changes
	mu          sync.Mutex
	rosterCache []Employee
	stopObserve func()
}

type AppDeps struct {
	Config   *Config
	Docs     DocumentStore
	Remote   RemoteLists
	Bus      *Bus
	Mailer   Mailer
	Prompter Prompter
	Out      io.Writer
	ErrOut   io.Writer
	Logger   *slog.Logger
}

func NewApp(d AppDeps) *App {
	a := &App{
		cfg:      d.Config,
		logger:   d.Logger,
		bus:      d.Bus,
		roster:   NewRosterStore(d.Docs, d.Bus, d.Logger),
		agencies: NewAgencyDirectory(d.Docs, d.Remote, d.Bus, d.Logger),
		journal:  NewJournalStore(d.Docs, d.Bus, d.Logger),
		prompter: d.Prompter,
		out:      d.Out,
		errOut:   d.ErrOut,
	}
	a.submitter = NewSubmitter(a.roster, a.journal, a.agencies, d.Mailer, d.Config.Mail.Recipients, d.Logger)

	events, cancel := a.bus.Subscribe(TopicRosterChanged)
	a.stopObserve = cancel
	go func() {
		for range events {
			a.invalidateRoster()
		}
	}()

	return a
}

func (a *App) Close() {
	if a.stopObserve != nil {
		a.stopObserve()
	}
}

func (a *App) rosterSnapshot(ctx context.Context) []Employee {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rosterCache == nil {
		a.rosterCache = a.roster.List(ctx)
	}
	return a.rosterCache
}

func (a *App) invalidateRoster() {
	a.mu.Lock()
	a.rosterCache = nil
	a.mu.Unlock()
}

// +-------------------+
// |                   |
// |    Entry Form     |
// |                   |
// +-------------------+

// FillForm asks for every field the form still misses. Reason, shift and the
// departments count as missing only when empty, so callers clear the NewForm
// defaults they want asked.
func (a *App) FillForm(ctx context.Context, form *Form) error {
	p := a.prompter
	names := employeeNames(a.rosterSnapshot(ctx))

	var err error
	if form.AbsentEmployee == "" {
		if form.AbsentEmployee, err = PickName(p, "Nieobecny pracownik", names); err != nil {
			return err
		}
	}
	form.Classify(a.rosterSnapshot(ctx))
	if _, onRoster := findInternal(a.rosterSnapshot(ctx), form.AbsentEmployee); !onRoster && form.AbsentDepartment == "" {
		dept, err := p.Select("Dział nieobecnego", departmentOptions())
		if err != nil {
			return err
		}
		form.AbsentDepartment = Department(dept)
	}

	if form.Reason == "" {
		reasonOptions := make([]Option, 0, len(Reasons))
		for _, r := range Reasons {
			reasonOptions = append(reasonOptions, Option{Label: r, Value: r})
		}
		if form.Reason, err = p.Select("Powód", reasonOptions); err != nil {
			return err
		}
	}

	if form.Shift == "" {
		shiftOptions := make([]Option, 0, len(Shifts))
		for _, s := range Shifts {
			shiftOptions = append(shiftOptions, Option{Label: string(s), Value: string(s)})
		}
		shift, err := p.Select("Zmiana", shiftOptions)
		if err != nil {
			return err
		}
		form.Shift = Shift(shift)
	}

	if form.SubstituteEmployee == "" {
		if form.SubstituteEmployee, err = PickName(p, "Zastępca", names); err != nil {
			return err
		}
	}
	form.Classify(a.rosterSnapshot(ctx))

	switch {
	case form.SubstituteExternal && form.Agency == "":
		fmt.Fprintln(a.out, render(mutedStyle, "Zastępca spoza listy: wybierz agencję"))
		agencyOptions := make([]Option, 0)
		for _, ag := range a.agencies.List() {
			agencyOptions = append(agencyOptions, Option{Label: ag.Name, Value: ag.Name})
		}
		if form.Agency, err = p.Select("Agencja", agencyOptions); err != nil {
			return err
		}
	case !form.SubstituteExternal:
		fmt.Fprintf(a.out, "%s %s\n", render(mutedStyle, "Dział zastępcy:"), form.SubstituteDepartment)
	}

	date, err := p.Input("Data (DD.MM.YYYY)", form.FormattedDate())
	if err != nil {
		return err
	}
	parsed, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return newValidationError("date", "Nieprawidłowa data: "+date)
	}
	form.Date = parsed

	return nil
}

// SubmitForm runs the submission and reports the outcome.
func (a *App) SubmitForm(ctx context.Context, form Form) error {
	res, err := a.submitter.Submit(ctx, form)
	journalFailed := errors.Is(err, ErrJournalSave)
	mailFailed := errors.Is(err, ErrMailHandoff)
	if err != nil && !journalFailed && !mailFailed {
		return err
	}

	if res.Registered != nil {
		fmt.Fprintf(a.out, "Dodano pracownika zewnętrznego: %s (%s)\n", res.Registered.Name, res.Registered.Agency)
	}
	switch {
	case err == nil:
		fmt.Fprintln(a.out, "Wiadomość e-mail została przesłana i zapisana w historii")
		return nil
	case mailFailed:
		if !journalFailed {
			fmt.Fprintln(a.out, "Wpis zapisany w historii.")
		}
		return fmt.Errorf("Nie można otworzyć klienta poczty: %w", err)
	default:
		fmt.Fprintln(a.out, "Wiadomość e-mail została przesłana.")
		return fmt.Errorf("Nie udało się zapisać wpisu w historii: %w", err)
	}
}

// +-------------------+
// |                   |
// |      Journal      |
// |                   |
// +-------------------+

func (a *App) ShowJournal(ctx context.Context) error {
	entries := a.journal.List(ctx)
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "Brak wpisów w historii")
		return nil
	}

	headers := []string{"ID", "Data", "Zmiana", "Nieobecny", "Zastępca", "Agencja", "Zapisano"}
	var rows [][]string
	for _, e := range entries {
		rows = append(rows, []string{
			e.ID,
			e.Date,
			string(e.Shift),
			fmt.Sprintf("%s (%s)", e.AbsentEmployee, e.AbsentDepartment),
			fmt.Sprintf("%s (%s)", e.SubstituteEmployee, e.SubstituteDepartment),
			e.Agency,
			FormatTimestamp(e.Timestamp),
		})
	}
	footers := []string{"", "", "", "", "", "Razem:", strconv.Itoa(len(entries))}
	PrintTable(a.out, headers, rows, footers)
	return nil
}

func (a *App) ShowJournalEntry(ctx context.Context, id string) error {
	e, err := a.journal.Get(ctx, id)
	if err != nil {
		return err
	}
	PrintCard(a.out, fmt.Sprintf("%s · zmiana %s", e.Date, e.Shift), [][2]string{
		{"Nieobecny", fmt.Sprintf("%s, dział %s", e.AbsentEmployee, e.AbsentDepartment)},
		{"Powód", e.Reason},
		{"Zastępca", fmt.Sprintf("%s, dział %s", e.SubstituteEmployee, e.SubstituteDepartment)},
		{"Agencja", e.Agency},
		{"Zapisano", e.CreatedAt().Format("2006-01-02 15:04")},
	})
	return nil
}

func (a *App) DeleteJournalEntry(ctx context.Context, id string, confirmed bool) error {
	if _, err := a.journal.Get(ctx, id); err != nil {
		return err
	}
	if !confirmed {
		ok, err := a.prompter.Confirm("Czy na pewno chcesz usunąć ten wpis?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, "Anulowano")
			return nil
		}
	}
	if err := a.journal.Remove(ctx, id); err != nil {
		return fmt.Errorf("Nie udało się usunąć wpisu: %w", err)
	}
	fmt.Fprintf(a.out, "Usunięto wpis %s\n", id)
	return nil
}

// ExportJournal writes the journal to outPath ("-" for stdout) and, when
// upload is set, to the configured S3 bucket.
func (a *App) ExportJournal(ctx context.Context, format, outPath string, upload bool) error {
	entries := a.journal.List(ctx)

	var buf bytes.Buffer
	if err := WriteExport(&buf, format, entries); err != nil {
		return err
	}

	switch outPath {
	case "":
	case "-":
		if _, err := a.out.Write(buf.Bytes()); err != nil {
			return err
		}
	default:
		if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("error writing export: %w", err)
		}
		fmt.Fprintf(a.errOut, "Zapisano %d wpisów do %s\n", len(entries), outPath)
	}

	if upload {
		s3cfg := a.cfg.Export.S3
		if s3cfg.Bucket == "" {
			return fmt.Errorf("export.s3.bucket is not configured")
		}
		dest, err := NewS3Destination(ctx, s3cfg, exportContentType(format))
		if err != nil {
			return err
		}
		if err := dest.Write(ctx, buf.Bytes()); err != nil {
			return err
		}
		a.logger.Info("journal uploaded", "bucket", s3cfg.Bucket, "key", s3cfg.Key, "bytes", buf.Len())
		fmt.Fprintf(a.errOut, "Wysłano do s3://%s/%s\n", s3cfg.Bucket, s3cfg.Key)
	}
	return nil
}

// +-------------------+
// |                   |
// |      Roster       |
// |                   |
// +-------------------+

func (a *App) ShowRoster(ctx context.Context) error {
	employees := a.roster.List(ctx)

	internal := 0
	headers := []string{"ID", "Imię i nazwisko", "Dział", "Agencja"}
	var rows [][]string
	for _, e := range employees {
		if !e.IsExternal {
			internal++
		}
		rows = append(rows, []string{e.ID, e.Name, string(e.Department), e.Agency})
	}

	fmt.Fprintln(a.out, render(titleStyle, fmt.Sprintf("Personnel Service - %d pracowników", internal)))
	PrintTable(a.out, headers, rows, nil)
	return nil
}

func (a *App) AddEmployee(ctx context.Context, name string, dept Department) error {
	emp, err := a.roster.Add(ctx, name, dept)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Dodano %s (%s) jako %s\n", emp.Name, emp.Department, emp.ID)
	return nil
}

// EditEmployee updates name and/or department; empty arguments keep the
// current value.
func (a *App) EditEmployee(ctx context.Context, id, name string, dept Department) error {
	current, err := a.roster.Get(ctx, id)
	if err != nil {
		return err
	}
	if name == "" {
		name = current.Name
	}
	if dept == "" {
		dept = current.Department
	}
	emp, err := a.roster.Edit(ctx, id, name, dept)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Zapisano %s: %s (%s)\n", emp.ID, emp.Name, emp.Department)
	return nil
}

func (a *App) DeleteEmployee(ctx context.Context, id string, confirmed bool) error {
	emp, err := a.roster.Get(ctx, id)
	if err != nil {
		return err
	}
	if !confirmed {
		ok, err := a.prompter.Confirm(fmt.Sprintf("Czy na pewno chcesz usunąć tego pracownika? (%s)", emp.Name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, "Anulowano")
			return nil
		}
	}
	if err := a.roster.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Usunięto %s\n", emp.Name)
	return nil
}

// ImportRoster pulls the remote name list (or the cached copy when offline)
// and adds unknown names to the roster.
func (a *App) ImportRoster(ctx context.Context) error {
	names, err := a.agencies.RefreshEmployees(ctx)
	if err != nil {
		names, err = a.agencies.CachedEmployeeNames(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(a.out, "Brak listy pracowników do zaimportowania")
			return nil
		}
	}

	added, err := a.roster.ImportNames(ctx, names)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Zaimportowano %d nowych pracowników\n", added)
	return nil
}

// +-------------------+
// |                   |
// |     Agencies      |
// |                   |
// +-------------------+

func (a *App) ShowAgencies(ctx context.Context) error {
	headers := []string{"Agencja", "E-mail"}
	var rows [][]string
	for _, ag := range a.agencies.List() {
		rows = append(rows, []string{ag.Name, ag.Email})
	}
	PrintTable(a.out, headers, rows, nil)
	return nil
}

// RefreshAgencies is best effort: a failed fetch keeps the current list.
func (a *App) RefreshAgencies(ctx context.Context) {
	if err := a.agencies.Refresh(ctx); err != nil {
		fmt.Fprintln(a.errOut, render(mutedStyle, "Nie udało się odświeżyć listy agencji, używam zapisanej"))
	}
}

// +-------------------+
// |                   |
// |       Watch       |
// |                   |
// +-------------------+

// Watch prints store events until ctx is done. Without NATS only writes made
// by this process are seen.
func (a *App) Watch(ctx context.Context, topic string, sub *NATSSubscriber) error {
	var (
		events <-chan Event
		cancel func()
	)
	if sub != nil {
		var err error
		events, cancel, err = sub.Subscribe(topic)
		if err != nil {
			return err
		}
	} else {
		events, cancel = a.bus.Subscribe(topic)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			fmt.Fprintf(a.out, "%s  %-28s %-8s %s\n",
				ev.Time.Local().Format("15:04:05"), ev.Topic, ev.Action, ev.RecordID)
		}
	}
}
