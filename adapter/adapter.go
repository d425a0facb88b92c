// Package adapter describes how to crawl one source site. An Adapter is
// configuration, not code: selector maps, entry URLs, pre-navigation
// steps and a pagination strategy. The engine stays source-agnostic by
// being parameterized with these.
package adapter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Engine selects the automation backend for a source.
type Engine string

const (
	// EngineBrowser drives a real browser session for JS-rendered sites.
	EngineBrowser Engine = "browser"
	// EngineStatic fetches server-rendered pages over plain HTTP.
	EngineStatic Engine = "static"
)

// Strategy names the site-specific mechanism for reaching the next page
// of results.
type Strategy string

const (
	// StrategyNextLink clicks a "next" control on the current page.
	StrategyNextLink Strategy = "next-link"
	// StrategyCursor substitutes an incrementing page number into a URL
	// template and navigates to it.
	StrategyCursor Strategy = "cursor"
	// StrategyScroll scrolls to trigger lazy loading and re-extracts the
	// same URL until no new listings appear.
	StrategyScroll Strategy = "scroll"
)

// SelectorMap declares where each canonical field lives in the markup.
// Fields are extracted as trimmed text, Links as resolved hrefs, Lists
// as the trimmed text of every matching node.
type SelectorMap struct {
	// Card is the listing-card container for list extraction. In a
	// detail map it is optional and names the selector to wait for
	// before extracting; detail fields are read from the document root.
	Card   string            `yaml:"card,omitempty"`
	Fields map[string]string `yaml:"fields,omitempty"`
	Links  map[string]string `yaml:"links,omitempty"`
	Lists  map[string]string `yaml:"lists,omitempty"`
}

// PreStep is one idempotent pre-navigation action, run once per entry
// URL before extraction starts. Dismiss steps are best-effort: an
// absent target is not an error.
type PreStep struct {
	// Action is one of "dismiss" (click if visible), "wait" (wait for
	// the selector) or "scroll".
	Action   string `yaml:"action"`
	Selector string `yaml:"selector,omitempty"`
}

// Pagination configures how the controller advances through result
// pages. MaxPages is a hard bound independent of site behavior.
type Pagination struct {
	Strategy     Strategy `yaml:"strategy"`
	NextSelector string   `yaml:"next_selector,omitempty"`
	// URLTemplate holds one %d verb replaced with the cursor value.
	URLTemplate string `yaml:"url_template,omitempty"`
	CursorStart int    `yaml:"cursor_start,omitempty"`
	MaxPages    int    `yaml:"max_pages"`
}

// Adapter is the full declarative description of one source.
type Adapter struct {
	Name      string   `yaml:"name"`
	Engine    Engine   `yaml:"engine"`
	EntryURLs []string `yaml:"entry_urls"`

	// WaitSelector is the primary content selector: navigation is not
	// considered complete until it appears.
	WaitSelector string `yaml:"wait_selector"`

	List       SelectorMap  `yaml:"list"`
	Detail     *SelectorMap `yaml:"detail,omitempty"`
	PreProcess []PreStep    `yaml:"preprocess,omitempty"`
	Pagination Pagination   `yaml:"pagination"`

	// Defaults are adapter-declared fallback values applied by the
	// normalizer only when the extracted field is empty. They are site
	// knowledge, not engine behavior.
	Defaults map[string]string `yaml:"defaults,omitempty"`

	// Headers are extra HTTP headers sent with every request for this
	// source (e.g. a Referer some sites expect).
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Validate checks the adapter is complete enough to run.
func (a *Adapter) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("adapter missing name")
	}
	if len(a.EntryURLs) == 0 {
		return fmt.Errorf("adapter %s: no entry URLs", a.Name)
	}
	switch a.Engine {
	case EngineBrowser, EngineStatic:
	case "":
		return fmt.Errorf("adapter %s: missing engine", a.Name)
	default:
		return fmt.Errorf("adapter %s: unknown engine %q", a.Name, a.Engine)
	}
	if a.List.Card == "" {
		return fmt.Errorf("adapter %s: list selector map missing card", a.Name)
	}
	// The identity comes from the list page: the detail pass navigates
	// by applyLink, so it can never supply one itself.
	if _, ok := a.List.Links["applyLink"]; !ok {
		return fmt.Errorf("adapter %s: list selector map missing applyLink link", a.Name)
	}
	switch a.Pagination.Strategy {
	case StrategyNextLink:
		if a.Pagination.NextSelector == "" {
			return fmt.Errorf("adapter %s: next-link pagination missing next_selector", a.Name)
		}
	case StrategyCursor:
		if a.Pagination.URLTemplate == "" {
			return fmt.Errorf("adapter %s: cursor pagination missing url_template", a.Name)
		}
	case StrategyScroll:
	default:
		return fmt.Errorf("adapter %s: unknown pagination strategy %q", a.Name, a.Pagination.Strategy)
	}
	if a.Pagination.MaxPages <= 0 {
		return fmt.Errorf("adapter %s: max_pages must be positive", a.Name)
	}
	for _, step := range a.PreProcess {
		switch step.Action {
		case "dismiss", "wait":
			if step.Selector == "" {
				return fmt.Errorf("adapter %s: %s step missing selector", a.Name, step.Action)
			}
		case "scroll":
		default:
			return fmt.Errorf("adapter %s: unknown preprocess action %q", a.Name, step.Action)
		}
	}
	return nil
}

// Load reads adapters from a YAML file and validates each one.
func Load(path string) ([]Adapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read adapters file: %w", err)
	}
	var doc struct {
		Adapters []Adapter `yaml:"adapters"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse adapters file: %w", err)
	}
	if len(doc.Adapters) == 0 {
		return nil, fmt.Errorf("adapters file %s declares no adapters", path)
	}
	seen := make(map[string]bool, len(doc.Adapters))
	for i := range doc.Adapters {
		if err := doc.Adapters[i].Validate(); err != nil {
			return nil, err
		}
		if seen[doc.Adapters[i].Name] {
			return nil, fmt.Errorf("duplicate adapter name %q", doc.Adapters[i].Name)
		}
		seen[doc.Adapters[i].Name] = true
	}
	return doc.Adapters, nil
}

// Filter returns the adapters whose names appear in sources, preserving
// adapter order. An empty filter returns everything.
func Filter(adapters []Adapter, sources []string) []Adapter {
	if len(sources) == 0 {
		return adapters
	}
	wanted := make(map[string]bool, len(sources))
	for _, s := range sources {
		wanted[s] = true
	}
	out := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		if wanted[a.Name] {
			out = append(out, a)
		}
	}
	return out
}
