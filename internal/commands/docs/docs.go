// Package docs searches Sphinx documentation inventories.
package docs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/pkg/appcmd"
	"github.com/keshon/appcmd/pkg/retrylimit"
	"github.com/rs/zerolog"
)

const (
	embedColor = 0xb01e66
	maxResults = 8
)

// Site is a documentation root that serves objects.inv.
type Site struct {
	Name string
	URL  string
}

// DefaultSites is used when no index is configured.
var DefaultSites = []Site{
	{Name: "python", URL: "https://docs.python.org/3"},
	{Name: "discordpy", URL: "https://discordpy.readthedocs.io/en/stable"},
}

var ErrUnknownSite = errors.New("unknown documentation site")

// ParseSites reads "name=url,name=url". An empty string yields DefaultSites.
func ParseSites(raw string) ([]Site, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSites, nil
	}
	var sites []Site
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, ok := strings.Cut(part, "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("docs index entry %q: want name=url", part)
		}
		if seen[name] {
			return nil, fmt.Errorf("docs index entry %q: duplicate site", name)
		}
		seen[name] = true
		sites = append(sites, Site{Name: name, URL: strings.TrimRight(url, "/")})
	}
	if len(sites) == 0 {
		return DefaultSites, nil
	}
	return sites, nil
}

type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.url, e.status, http.StatusText(e.status))
}

func (e *statusError) StatusCode() int { return e.status }

type Docs struct {
	sites  []Site
	http   *http.Client
	retry  retrylimit.Config
	scope  appcmd.Scope
	log    zerolog.Logger
	mu     sync.Mutex
	caches map[string]map[string]string
}

type Option func(*Docs)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Docs) { d.http = c }
}

func WithRetry(cfg retrylimit.Config) Option {
	return func(d *Docs) { d.retry = cfg }
}

func WithScope(s appcmd.Scope) Option {
	return func(d *Docs) { d.scope = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Docs) { d.log = l }
}

func New(sites []Site, opts ...Option) *Docs {
	if len(sites) == 0 {
		sites = DefaultSites
	}
	d := &Docs{
		sites:  sites,
		http:   &http.Client{Timeout: 15 * time.Second},
		retry:  retrylimit.DefaultConfig(),
		scope:  appcmd.GlobalScope(),
		log:    zerolog.Nop(),
		caches: make(map[string]map[string]string),
	}
	d.retry.MaxAttempts = 3
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Docs) Name() string { return "docs" }

func (d *Docs) AppCommands() []*appcmd.Command {
	choices := make([]appcmd.Choice, len(d.sites))
	for i, s := range d.sites {
		choices[i] = appcmd.Choice{Name: s.Name, Value: s.Name}
	}
	site := appcmd.WithOptionOverride("Site", appcmd.Option{
		Description: "Documentation to search",
		Type:        appcmd.OptionString,
		Required:    true,
		Choices:     choices,
	})

	group := appcmd.Must(appcmd.NewGroup("docs", "Search documentation", appcmd.WithScope(d.scope)))
	appcmd.Must(group.Subcommand("search", "Fuzzy search a documentation index", (*Docs).Search, site))
	appcmd.Must(group.Subcommand("lookup", "Link an exact documentation entry", (*Docs).Lookup, site))
	return []*appcmd.Command{group}
}

type searchArgs struct {
	Site  string
	Query string `description:"What to look for, e.g. asyncio.gather"`
}

func (d *Docs) Search(ic *appcmd.InteractionContext, args searchArgs) error {
	if err := ic.Defer(false); err != nil {
		return err
	}
	entries, err := d.inventory(ic.Context(), args.Site)
	if err != nil {
		return err
	}
	matches := Find(strings.ReplaceAll(args.Query, " ", ""), entries, maxResults)
	if len(matches) == 0 {
		return d.edit(ic, args.Site, fmt.Sprintf("Could not find anything matching `%s`.", args.Query))
	}
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("[`%s`](%s)", m.Key, m.URL)
	}
	return d.edit(ic, args.Site, strings.Join(lines, "\n"))
}

type lookupArgs struct {
	Site string
	Key  string `description:"Exact entry, e.g. label:tutorial"`
}

func (d *Docs) Lookup(ic *appcmd.InteractionContext, args lookupArgs) error {
	if err := ic.Defer(false); err != nil {
		return err
	}
	entries, err := d.inventory(ic.Context(), args.Site)
	if err != nil {
		return err
	}
	url, ok := entries[args.Key]
	if !ok {
		return d.edit(ic, args.Site, fmt.Sprintf("No entry called `%s`.", args.Key))
	}
	return d.edit(ic, args.Site, fmt.Sprintf("[`%s`](%s)", args.Key, url))
}

func (d *Docs) edit(ic *appcmd.InteractionContext, site, description string) error {
	embeds := []*discordgo.MessageEmbed{{
		Title:       site,
		Description: description,
		Color:       embedColor,
	}}
	_, err := ic.Edit(&discordgo.WebhookEdit{Embeds: &embeds})
	return err
}

func (d *Docs) site(name string) (Site, bool) {
	for _, s := range d.sites {
		if s.Name == name {
			return s, true
		}
	}
	return Site{}, false
}

// inventory returns the parsed index for site, fetching it on first use.
func (d *Docs) inventory(ctx context.Context, name string) (map[string]string, error) {
	s, ok := d.site(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSite, name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if entries, ok := d.caches[s.Name]; ok {
		return entries, nil
	}

	var entries map[string]string
	err := retrylimit.Do(ctx, nil, d.retry, func() error {
		var err error
		entries, err = d.fetch(ctx, s)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s inventory: %w", s.Name, err)
	}
	d.caches[s.Name] = entries
	d.log.Info().Str("site", s.Name).Int("entries", len(entries)).Msg("docs inventory loaded")
	return entries, nil
}

func (d *Docs) fetch(ctx context.Context, s Site) (map[string]string, error) {
	url := s.URL + "/objects.inv"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retrylimit.Fatal(err)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{url: url, status: resp.StatusCode}
	}
	entries, err := ParseInventory(resp.Body, s.URL)
	if err != nil {
		return nil, retrylimit.Fatal(err)
	}
	return entries, nil
}

// Reset drops cached inventories so the next query refetches them.
func (d *Docs) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.caches)
}
