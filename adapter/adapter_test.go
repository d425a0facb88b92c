package adapter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validAdapter() Adapter {
	return Adapter{
		Name:         "testsource",
		Engine:       EngineStatic,
		EntryURLs:    []string{"https://jobs.test/search"},
		WaitSelector: ".card",
		List: SelectorMap{
			Card:  ".card",
			Links: map[string]string{"applyLink": "a.title"},
		},
		Pagination: Pagination{
			Strategy:     StrategyNextLink,
			NextSelector: "a.next",
			MaxPages:     3,
		},
	}
}

func TestAdapterValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Adapter)
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(a *Adapter) { a.Name = "" },
			wantErr: "missing name",
		},
		{
			name:    "no entry urls",
			mutate:  func(a *Adapter) { a.EntryURLs = nil },
			wantErr: "no entry URLs",
		},
		{
			name:    "unknown engine",
			mutate:  func(a *Adapter) { a.Engine = "webdriver" },
			wantErr: "unknown engine",
		},
		{
			name:    "missing card selector",
			mutate:  func(a *Adapter) { a.List.Card = "" },
			wantErr: "missing card",
		},
		{
			name: "missing applyLink selector",
			mutate: func(a *Adapter) {
				a.List.Links = nil
			},
			wantErr: "applyLink",
		},
		{
			name: "detail pass cannot replace the list identity",
			mutate: func(a *Adapter) {
				a.List.Links = nil
				a.Detail = &SelectorMap{
					Fields: map[string]string{"description": ".desc"},
				}
			},
			wantErr: "applyLink",
		},
		{
			name: "next-link without selector",
			mutate: func(a *Adapter) {
				a.Pagination.NextSelector = ""
			},
			wantErr: "next_selector",
		},
		{
			name: "cursor without template",
			mutate: func(a *Adapter) {
				a.Pagination = Pagination{Strategy: StrategyCursor, MaxPages: 3}
			},
			wantErr: "url_template",
		},
		{
			name: "zero max pages",
			mutate: func(a *Adapter) {
				a.Pagination.MaxPages = 0
			},
			wantErr: "max_pages",
		},
		{
			name: "dismiss step without selector",
			mutate: func(a *Adapter) {
				a.PreProcess = []PreStep{{Action: "dismiss"}}
			},
			wantErr: "missing selector",
		},
		{
			name: "unknown preprocess action",
			mutate: func(a *Adapter) {
				a.PreProcess = []PreStep{{Action: "hover", Selector: ".x"}}
			},
			wantErr: "unknown preprocess action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAdapter()
			tt.mutate(&a)
			if err := a.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	a := validAdapter()
	if err := a.Validate(); err != nil {
		t.Fatalf("valid adapter rejected: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	doc := `
adapters:
  - name: internshala
    engine: static
    entry_urls:
      - https://internshala.com/internships/
    wait_selector: ".individual_internship"
    list:
      card: ".individual_internship"
      fields:
        title: ".job-internship-name"
      links:
        applyLink: "a.job-title-href"
    pagination:
      strategy: cursor
      url_template: "https://internshala.com/internships/page-%d/"
      cursor_start: 1
      max_pages: 5
    defaults:
      employmentType: Internship
`
	path := filepath.Join(t.TempDir(), "adapters.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	adapters, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(adapters) != 1 {
		t.Fatalf("adapters = %d, want 1", len(adapters))
	}
	a := adapters[0]
	if a.Name != "internshala" || a.Engine != EngineStatic {
		t.Errorf("adapter = %+v", a)
	}
	if a.Pagination.Strategy != StrategyCursor || a.Pagination.MaxPages != 5 {
		t.Errorf("pagination = %+v", a.Pagination)
	}
	if a.Defaults["employmentType"] != "Internship" {
		t.Errorf("defaults = %v", a.Defaults)
	}
}

func TestLoadRejectsInvalidAndDuplicateAdapters(t *testing.T) {
	invalid := `
adapters:
  - name: broken
    engine: static
    entry_urls: [https://x.test/]
    list:
      card: ".card"
      links: {applyLink: "a"}
    pagination: {strategy: next-link, max_pages: 3}
`
	path := filepath.Join(t.TempDir(), "adapters.yaml")
	if err := os.WriteFile(path, []byte(invalid), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "next_selector") {
		t.Fatalf("expected validation error, got %v", err)
	}

	duplicate := `
adapters:
  - name: dup
    engine: static
    entry_urls: [https://x.test/]
    wait_selector: ".card"
    list: {card: ".card", links: {applyLink: "a"}}
    pagination: {strategy: scroll, max_pages: 3}
  - name: dup
    engine: static
    entry_urls: [https://x.test/]
    wait_selector: ".card"
    list: {card: ".card", links: {applyLink: "a"}}
    pagination: {strategy: scroll, max_pages: 3}
`
	if err := os.WriteFile(path, []byte(duplicate), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestFilter(t *testing.T) {
	adapters := []Adapter{
		{Name: "naukri"}, {Name: "indeed"}, {Name: "glassdoor"},
	}

	if got := Filter(adapters, nil); len(got) != 3 {
		t.Errorf("empty filter should keep everything, got %d", len(got))
	}
	got := Filter(adapters, []string{"glassdoor", "naukri"})
	if len(got) != 2 || got[0].Name != "naukri" || got[1].Name != "glassdoor" {
		t.Errorf("filter = %v, must preserve adapter order", got)
	}
	if got := Filter(adapters, []string{"unknown"}); len(got) != 0 {
		t.Errorf("unknown source should select nothing, got %v", got)
	}
}

func TestDefaultsAreValid(t *testing.T) {
	adapters := Defaults()
	if len(adapters) == 0 {
		t.Fatal("no built-in adapters")
	}
	seen := map[string]bool{}
	for i := range adapters {
		if err := adapters[i].Validate(); err != nil {
			t.Errorf("built-in adapter invalid: %v", err)
		}
		if seen[adapters[i].Name] {
			t.Errorf("duplicate built-in adapter %q", adapters[i].Name)
		}
		seen[adapters[i].Name] = true
	}
}
