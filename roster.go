package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

const msgEmployeeNameRequired = "Podaj imię pracownika"

var seedRoster = []struct {
	Name       string
	Department Department
}{
	{"Dzina Siarbolina", DepartmentOutbound},
	{"Robel Daniel Eticha", DepartmentOutbound},
	{"Oleksandr Osetynskyi", DepartmentInbound},
	{"Nataliia Sira", DepartmentInbound},
	{"Iryna Podakina", DepartmentOutbound},
	{"Denys Pidrivnyi", DepartmentOutbound},
	{"Tetiana Holovchenko", DepartmentInbound},
	{"Ivan Panasiuk", DepartmentOutbound},
	{"Valeriia Mysniaieva", DepartmentInbound},
	{"Andrii Potiiev", DepartmentOutbound},
	{"Kateryna Naumchuk", DepartmentInbound},
	{"Karyna Nelina", DepartmentOutbound},
	{"Andrii Stovbchatyi", DepartmentInbound},
	{"Artem Fedoreikov", DepartmentOutbound},
}

func seedEmployees() []Employee {
	employees := make([]Employee, 0, len(seedRoster))
	for i, s := range seedRoster {
		employees = append(employees, Employee{
			ID:         seedEmployeeID(i),
			Name:       s.Name,
			Department: s.Department,
		})
	}
	return employees
}

// RosterStore keeps the employee list as a single document. Every mutation
// reads the whole list, changes it and writes it back.
type RosterStore struct {
	mu     sync.Mutex
	docs   DocumentStore
	bus    *Bus
	logger *slog.Logger

	// last list read successfully, served when storage fails
	last []Employee
}

func NewRosterStore(docs DocumentStore, bus *Bus, logger *slog.Logger) *RosterStore {
	return &RosterStore{
		docs:   docs,
		bus:    bus,
		logger: logger.With("component", "roster"),
	}
}

// load reads the roster, seeding it on first run.
func (s *RosterStore) load(ctx context.Context) ([]Employee, error) {
	employees, found, err := readList[Employee](ctx, s.docs, KeyEmployees)
	if err != nil {
		return nil, err
	}
	if !found {
		employees = seedEmployees()
		if err := writeList(ctx, s.docs, KeyEmployees, employees); err != nil {
			return nil, err
		}
		s.logger.Info("initialized roster from seed list", "count", len(employees))
	}
	s.last = slices.Clone(employees)
	return employees, nil
}

func (s *RosterStore) save(ctx context.Context, employees []Employee, action, id string) error {
	if err := writeList(ctx, s.docs, KeyEmployees, employees); err != nil {
		return err
	}
	s.last = slices.Clone(employees)
	s.bus.Publish(ctx, TopicRosterChanged, action, id)
	return nil
}

// List never fails: storage errors are logged and the last known list (or the
// seed list) is returned.
func (s *RosterStore) List(ctx context.Context) []Employee {
	s.mu.Lock()
	defer s.mu.Unlock()

	employees, err := s.load(ctx)
	if err != nil {
		s.logger.Error("error loading roster", "err", err)
		if s.last != nil {
			return slices.Clone(s.last)
		}
		return seedEmployees()
	}
	return employees
}

func (s *RosterStore) Add(ctx context.Context, name string, department Department) (Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Employee{}, newValidationError("name", msgEmployeeNameRequired)
	}
	if _, err := ParseDepartment(string(department)); err != nil {
		return Employee{}, newValidationError("department", err.Error())
	}

	id, err := NewEmployeeID()
	if err != nil {
		return Employee{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	employees, err := s.load(ctx)
	if err != nil {
		return Employee{}, err
	}

	emp := Employee{ID: id, Name: name, Department: department}
	employees = append(employees, emp)
	if err := s.save(ctx, employees, ActionCreated, id); err != nil {
		return Employee{}, err
	}
	return emp, nil
}

// Edit changes name and department; the external flag and agency are kept.
func (s *RosterStore) Edit(ctx context.Context, id, name string, department Department) (Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Employee{}, newValidationError("name", msgEmployeeNameRequired)
	}
	if _, err := ParseDepartment(string(department)); err != nil {
		return Employee{}, newValidationError("department", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	employees, err := s.load(ctx)
	if err != nil {
		return Employee{}, err
	}

	idx := slices.IndexFunc(employees, func(e Employee) bool { return e.ID == id })
	if idx < 0 {
		return Employee{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	employees[idx].Name = name
	employees[idx].Department = department

	if err := s.save(ctx, employees, ActionUpdated, id); err != nil {
		return Employee{}, err
	}
	return employees[idx], nil
}

// Remove deletes exactly the record with id. Confirmation is the caller's job.
func (s *RosterStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	employees, err := s.load(ctx)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(employees, func(e Employee) bool { return e.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	employees = slices.Delete(employees, idx, idx+1)

	return s.save(ctx, employees, ActionDeleted, id)
}

// AddExternal registers an agency-supplied substitute unless a record with the
// same name and agency already exists. added reports whether a write happened.
func (s *RosterStore) AddExternal(ctx context.Context, name, agency string) (emp Employee, added bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Employee{}, false, newValidationError("name", msgEmployeeNameRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	employees, err := s.load(ctx)
	if err != nil {
		return Employee{}, false, err
	}

	for _, e := range employees {
		if e.IsExternal && e.Name == name && e.Agency == agency {
			return e, false, nil
		}
	}

	id, err := NewEmployeeID()
	if err != nil {
		return Employee{}, false, err
	}
	emp = Employee{
		ID:         id,
		Name:       name,
		Department: DefaultExternalDepartment,
		IsExternal: true,
		Agency:     agency,
	}
	employees = append(employees, emp)
	if err := s.save(ctx, employees, ActionCreated, id); err != nil {
		return Employee{}, false, err
	}

	s.logger.Info("registered external employee", "name", name, "agency", agency)
	return emp, true, nil
}

// ImportNames adds every name not yet on the roster as an internal Outbound
// employee and returns how many were added.
func (s *RosterStore) ImportNames(ctx context.Context, names []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	employees, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	known := make(map[string]struct{}, len(employees))
	for _, e := range employees {
		known[e.Name] = struct{}{}
	}

	added := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := known[name]; ok {
			continue
		}
		id, err := NewEmployeeID()
		if err != nil {
			return 0, err
		}
		employees = append(employees, Employee{ID: id, Name: name, Department: DepartmentOutbound})
		known[name] = struct{}{}
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := s.save(ctx, employees, ActionReplaced, ""); err != nil {
		return 0, err
	}
	return added, nil
}

func (s *RosterStore) Get(ctx context.Context, id string) (Employee, error) {
	for _, e := range s.List(ctx) {
		if e.ID == id {
			return e, nil
		}
	}
	return Employee{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
}

// FindByName returns the first record whose name matches exactly.
func (s *RosterStore) FindByName(ctx context.Context, name string) (Employee, bool) {
	for _, e := range s.List(ctx) {
		if e.Name == name {
			return e, true
		}
	}
	return Employee{}, false
}

func (s *RosterStore) Names(ctx context.Context) []string {
	return employeeNames(s.List(ctx))
}

func employeeNames(employees []Employee) []string {
	names := make([]string, 0, len(employees))
	for _, e := range employees {
		names = append(names, e.Name)
	}
	return names
}
