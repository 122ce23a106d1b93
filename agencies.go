package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

var fallbackAgencies = []Agency{
	{Name: "OPUS", Email: "olena.opusapt@gmail.com"},
	{Name: "Fast Service", Email: "v.shepel@fast-service.com.pl"},
	{Name: "Topping Work", Email: "veranika.dubrouskaya@topping-work.pl"},
	{Name: "Work Unit", Email: "koordynator-idl@workunit.pl"},
	{Name: "MadMax", Email: "k.volkova@madmaxwork.pl"},
	{Name: "MS Group", Email: "v.mutovchy@msgroup.hr"},
}

// RemoteLists is the source AgencyDirectory refreshes from.
type RemoteLists interface {
	FetchEmployeeNames(ctx context.Context) ([]string, error)
	FetchAgencies(ctx context.Context) ([]Agency, error)
}

// AgencyDirectory serves the agency list from memory, backed by a local cache
// and a bundled fallback set. A refresh replaces the whole list or nothing.
type AgencyDirectory struct {
	mu       sync.RWMutex
	agencies []Agency

	docs   DocumentStore
	remote RemoteLists
	bus    *Bus
	logger *slog.Logger
}

func NewAgencyDirectory(docs DocumentStore, remote RemoteLists, bus *Bus, logger *slog.Logger) *AgencyDirectory {
	return &AgencyDirectory{
		agencies: slices.Clone(fallbackAgencies),
		docs:     docs,
		remote:   remote,
		bus:      bus,
		logger:   logger.With("component", "agencies"),
	}
}

// Load reads the cached list, falling back to the bundled set.
func (d *AgencyDirectory) Load(ctx context.Context) []Agency {
	cached, found, err := readList[Agency](ctx, d.docs, KeyAgencyCache)

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case err != nil:
		d.logger.Error("error loading cached agencies", "err", err)
		d.agencies = slices.Clone(fallbackAgencies)
	case !found:
		d.logger.Debug("no cached agencies, using fallback")
		d.agencies = slices.Clone(fallbackAgencies)
	default:
		d.logger.Debug("loaded agencies from cache", "count", len(cached))
		d.agencies = cached
	}
	return slices.Clone(d.agencies)
}

// Refresh fetches the remote list. On success the cache and the in-memory list
// are overwritten; on failure both are left untouched and the error is
// returned for logging.
func (d *AgencyDirectory) Refresh(ctx context.Context) error {
	agencies, err := d.remote.FetchAgencies(ctx)
	if err != nil {
		d.logger.Warn("agency refresh failed, keeping current list", "err", err)
		return err
	}

	if err := writeList(ctx, d.docs, KeyAgencyCache, agencies); err != nil {
		d.logger.Error("error caching agencies", "err", err)
		return err
	}

	d.mu.Lock()
	d.agencies = agencies
	d.mu.Unlock()

	d.logger.Info("agencies refreshed", "count", len(agencies))
	d.bus.Publish(ctx, TopicAgenciesChanged, ActionReplaced, "")
	return nil
}

// RefreshEmployees fetches the remote employee-name list into its cache.
func (d *AgencyDirectory) RefreshEmployees(ctx context.Context) ([]string, error) {
	names, err := d.remote.FetchEmployeeNames(ctx)
	if err != nil {
		d.logger.Warn("employee list refresh failed", "err", err)
		return nil, err
	}
	if err := writeList(ctx, d.docs, KeyEmployeeNameCache, names); err != nil {
		return nil, err
	}
	d.logger.Info("employee list refreshed", "count", len(names))
	return names, nil
}

// CachedEmployeeNames returns the last fetched employee-name list, if any.
func (d *AgencyDirectory) CachedEmployeeNames(ctx context.Context) ([]string, error) {
	names, _, err := readList[string](ctx, d.docs, KeyEmployeeNameCache)
	return names, err
}

func (d *AgencyDirectory) List() []Agency {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.agencies)
}

func (d *AgencyDirectory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.agencies))
	for _, a := range d.agencies {
		names = append(names, a.Name)
	}
	return names
}

func (d *AgencyDirectory) Find(name string) (Agency, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.agencies {
		if a.Name == name {
			return a, nil
		}
	}
	return Agency{}, fmt.Errorf("%w: %s", ErrAgencyNotFound, name)
}
