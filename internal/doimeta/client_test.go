package doimeta

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchBibTeX(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/x-bibtex; charset=utf-8" {
			t.Errorf("Accept = %q, want x-bibtex content negotiation", got)
		}
		switch r.URL.Path {
		case "/10.1000%2Fgood", "/10.1000/good":
			w.Write([]byte("@article{x,\n  title = {T}\n}\n"))
		case "/10.1000%2Fempty", "/10.1000/empty":
			w.Write([]byte("  \n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(WithDOIBaseURL(srv.URL))
	ctx := context.Background()

	bibtex, err := client.FetchBibTeX(ctx, "10.1000/good")
	if err != nil {
		t.Fatalf("FetchBibTeX() error = %v", err)
	}
	if want := "@article{x,\n  title = {T}\n}"; bibtex != want {
		t.Errorf("FetchBibTeX() = %q, want trimmed %q", bibtex, want)
	}

	if _, err := client.FetchBibTeX(ctx, "10.1000/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing DOI error = %v, want ErrNotFound", err)
	}
	if _, err := client.FetchBibTeX(ctx, "10.1000/empty"); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("empty body error = %v, want ErrInvalidResponse", err)
	}
}

func TestFetchBibTeXServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(WithDOIBaseURL(srv.URL))
	_, err := client.FetchBibTeX(context.Background(), "10.1000/x")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Service != "doi.org" || apiErr.StatusCode != 500 {
		t.Errorf("APIError = %+v, want doi.org/500", apiErr)
	}
}

func TestFetchBibTeXRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(WithDOIBaseURL(srv.URL))
	if _, err := client.FetchBibTeX(context.Background(), "10.1000/x"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}

func TestFetchPages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"page range", `{"message": {"page": "100-110"}}`, "100-110"},
		{"article number fallback", `{"message": {"article-number": "e1009"}}`, "e1009"},
		{"page wins over article number", `{"message": {"page": "1-9", "article-number": "e7"}}`, "1-9"},
		{"neither", `{"message": {}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(WithCrossrefBaseURL(srv.URL))
			got, err := client.FetchPages(context.Background(), "10.1000/x")
			if err != nil {
				t.Fatalf("FetchPages() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FetchPages() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchAbstractCrossrefFirst(t *testing.T) {
	s2Called := false
	crossref := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {"abstract": "<jats:p>From Crossref.</jats:p>"}}`))
	}))
	defer crossref.Close()
	s2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s2Called = true
		w.Write([]byte(`{"abstract": "From S2."}`))
	}))
	defer s2.Close()

	client := NewClient(WithCrossrefBaseURL(crossref.URL), WithS2BaseURL(s2.URL))
	got, err := client.FetchAbstract(context.Background(), "10.1000/x")
	if err != nil {
		t.Fatalf("FetchAbstract() error = %v", err)
	}
	if got == nil || *got != "From Crossref." {
		t.Errorf("FetchAbstract() = %v, want JATS-stripped Crossref abstract", got)
	}
	if s2Called {
		t.Error("Semantic Scholar consulted despite Crossref success")
	}
}

func TestFetchAbstractFallsBackToS2(t *testing.T) {
	crossref := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer crossref.Close()
	s2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"abstract": "  From S2.  "}`))
	}))
	defer s2.Close()

	client := NewClient(WithCrossrefBaseURL(crossref.URL), WithS2BaseURL(s2.URL))
	got, err := client.FetchAbstract(context.Background(), "10.1000/x")
	if err != nil {
		t.Fatalf("FetchAbstract() error = %v", err)
	}
	if got == nil || *got != "From S2." {
		t.Errorf("FetchAbstract() = %v, want trimmed S2 abstract", got)
	}
}

func TestFetchAbstractBothMiss(t *testing.T) {
	crossref := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": {}}`))
	}))
	defer crossref.Close()
	s2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"abstract": null}`))
	}))
	defer s2.Close()

	client := NewClient(WithCrossrefBaseURL(crossref.URL), WithS2BaseURL(s2.URL))
	got, err := client.FetchAbstract(context.Background(), "10.1000/x")
	if err != nil {
		t.Fatalf("FetchAbstract() error = %v", err)
	}
	if got != nil {
		t.Errorf("FetchAbstract() = %q, want nil when both services miss", *got)
	}
}
