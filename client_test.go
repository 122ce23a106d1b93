package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"
)

func TestListClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("unexpected Accept header %q", r.Header.Get("Accept"))
		}
		switch r.URL.Path {
		case "/employees":
			w.Write([]byte(`["Dzina Siarbolina","Ivan Panasiuk"]`))
		case "/agencies":
			w.Write([]byte(`[{"name":"OPUS","email":"olena.opusapt@gmail.com"}]`))
		}
	}))
	defer srv.Close()

	client := NewListClient(srv.URL+"/employees", srv.URL+"/agencies", time.Second)
	ctx := context.Background()

	names, err := client.FetchEmployeeNames(ctx)
	if err != nil {
		t.Fatalf("FetchEmployeeNames returned error: %v", err)
	}
	if !slices.Equal(names, []string{"Dzina Siarbolina", "Ivan Panasiuk"}) {
		t.Errorf("unexpected names %v", names)
	}

	agencies, err := client.FetchAgencies(ctx)
	if err != nil {
		t.Fatalf("FetchAgencies returned error: %v", err)
	}
	if len(agencies) != 1 || agencies[0] != (Agency{Name: "OPUS", Email: "olena.opusapt@gmail.com"}) {
		t.Errorf("unexpected agencies %+v", agencies)
	}
}

func TestListClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			w.Write([]byte(`{"not":"a list"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name string
		url  string
	}{
		{"non-200", srv.URL + "/down"},
		{"bad json", srv.URL + "/broken"},
		{"no url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewListClient(tt.url, tt.url, time.Second)
			if _, err := client.FetchEmployeeNames(context.Background()); err == nil {
				t.Error("expected FetchEmployeeNames to fail")
			}
			if _, err := client.FetchAgencies(context.Background()); err == nil {
				t.Error("expected FetchAgencies to fail")
			}
		})
	}
}

func TestListClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := NewListClient(srv.URL, srv.URL, 50*time.Millisecond)
	if _, err := client.FetchAgencies(context.Background()); err == nil {
		t.Error("expected timeout error")
	}
}
