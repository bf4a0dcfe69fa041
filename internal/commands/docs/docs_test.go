package docs

import (
	"bytes"
	"compress/zlib"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keshon/appcmd/pkg/appcmd"
	"github.com/keshon/appcmd/pkg/appcmd/appcmdtest"
	"github.com/keshon/appcmd/pkg/retrylimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventoryBody = `asyncio.gather py:function 1 library/asyncio-task.html#$ -
asyncio.Task py:class 1 library/asyncio-task.html#asyncio.Task -
asyncio py:module 0 library/asyncio.html#module-$ -
tutorial std:doc -1 tutorial/index.html The Python Tutorial
match-statement std:label -1 reference/compound_stmts.html#the-match-statement The match statement
`

func inventory(t *testing.T, project, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("# Sphinx inventory version 2\n")
	buf.WriteString("# Project: " + project + "\n")
	buf.WriteString("# Version: 3.12\n")
	buf.WriteString("# The remainder of this file is compressed using zlib.\n")
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseInventory(t *testing.T) {
	entries, err := ParseInventory(bytes.NewReader(inventory(t, "Python", inventoryBody)), "https://docs.example/3/")
	require.NoError(t, err)

	assert.Equal(t, "https://docs.example/3/library/asyncio-task.html#asyncio.gather", entries["asyncio.gather"])
	assert.Equal(t, "https://docs.example/3/library/asyncio.html#module-asyncio", entries["asyncio"])
	assert.Equal(t, "https://docs.example/3/tutorial/index.html", entries["label:The Python Tutorial"])
	assert.Equal(t, "https://docs.example/3/reference/compound_stmts.html#the-match-statement", entries["label:The match statement"])
	assert.Len(t, entries, 5)
}

func TestParseInventoryStripsDiscordPrefix(t *testing.T) {
	body := "discord.ext.commands.Bot py:class 1 ext/commands/api.html#$ -\ndiscord.Client py:class 1 api.html#$ -\n"
	entries, err := ParseInventory(bytes.NewReader(inventory(t, "discord.py", body)), "https://dpy.example")
	require.NoError(t, err)
	assert.Equal(t, "https://dpy.example/ext/commands/api.html#discord.ext.commands.Bot", entries["Bot"])
	assert.Equal(t, "https://dpy.example/api.html#discord.Client", entries["Client"])
}

func TestParseInventoryRejectsBadHeader(t *testing.T) {
	_, err := ParseInventory(bytes.NewBufferString("# Sphinx inventory version 1\na\nb\nc\n"), "x")
	assert.ErrorIs(t, err, ErrInventoryVersion)

	_, err = ParseInventory(bytes.NewBufferString("# Sphinx inventory version 2\n# Project: p\n# Version: 1\n# plain text\n"), "x")
	assert.ErrorIs(t, err, ErrNotCompressed)
}

func TestFindRanksTightMatchesFirst(t *testing.T) {
	entries := map[string]string{
		"asyncio.gather":         "a",
		"asyncio.Task":           "b",
		"argparse.ArgumentError": "c",
		"gather":                 "d",
	}
	got := Find("gather", entries, 8)
	require.Len(t, got, 2)
	assert.Equal(t, "gather", got[0].Key)
	assert.Equal(t, "asyncio.gather", got[1].Key)

	assert.Len(t, Find("a", entries, 2), 2)
	assert.Empty(t, Find("", entries, 8))
	assert.Equal(t, []Match{{Key: "asyncio.Task", URL: "b"}}, Find("TASK", entries, 8))
}

func TestParseSites(t *testing.T) {
	sites, err := ParseSites("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSites, sites)

	sites, err = ParseSites(" go = https://pkg.example/ , py=https://py.example")
	require.NoError(t, err)
	assert.Equal(t, []Site{{"go", "https://pkg.example"}, {"py", "https://py.example"}}, sites)

	_, err = ParseSites("nourl")
	assert.Error(t, err)
	_, err = ParseSites("a=x,a=y")
	assert.Error(t, err)
}

type fixture struct {
	backend *appcmdtest.Backend
	client  *appcmd.Client
	docs    *Docs
	hits    *atomic.Int32
}

func newFixture(t *testing.T, status int) *fixture {
	t.Helper()
	var hits atomic.Int32
	payload := inventory(t, "Python", inventoryBody)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		assert.Equal(t, "/objects.inv", r.URL.Path)
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)

	retry := retrylimit.DefaultConfig()
	retry.MaxAttempts = 2
	retry.InitialDelay = time.Millisecond
	retry.Jitter = false

	b := appcmdtest.NewBackend()
	c := appcmdtest.NewClient(b)
	d := New([]Site{{Name: "python", URL: srv.URL}}, WithHTTPClient(srv.Client()), WithRetry(retry))
	require.NoError(t, c.AddExtension(d))
	return &fixture{backend: b, client: c, docs: d, hits: &hits}
}

func (f *fixture) run(t *testing.T, path, site, field, value string) string {
	t.Helper()
	require.NoError(t, appcmdtest.Run(context.Background(), f.client, path,
		appcmdtest.Opt("site", appcmd.OptionString, site),
		appcmdtest.Opt(field, appcmd.OptionString, value),
	))
	require.NotEmpty(t, f.backend.Edits)
	edit := f.backend.Edits[len(f.backend.Edits)-1]
	require.NotNil(t, edit.Embeds)
	require.Len(t, *edit.Embeds, 1)
	return (*edit.Embeds)[0].Description
}

func TestSiteChoicesRegistered(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	_, err := f.client.Sync(context.Background())
	require.NoError(t, err)

	require.Len(t, f.backend.Global, 1)
	group := f.backend.Global[0]
	assert.Equal(t, "docs", group.Name)
	require.Len(t, group.Options, 2)
	site := group.Options[0].Options[0]
	assert.Equal(t, "site", site.Name)
	require.Len(t, site.Choices, 1)
	assert.Equal(t, "python", site.Choices[0].Value)
}

func TestSearchCachesInventory(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	desc := f.run(t, "docs search", "python", "query", "gather")
	assert.Contains(t, desc, "[`asyncio.gather`]("+f.docs.sites[0].URL+"/library/asyncio-task.html#asyncio.gather)")

	desc = f.run(t, "docs search", "python", "query", "zzzz")
	assert.Contains(t, desc, "Could not find anything")
	assert.Equal(t, int32(1), f.hits.Load())

	f.docs.Reset()
	f.run(t, "docs search", "python", "query", "task")
	assert.Equal(t, int32(2), f.hits.Load())
}

func TestLookupExactKey(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	desc := f.run(t, "docs lookup", "python", "key", "label:The match statement")
	assert.Contains(t, desc, "#the-match-statement")

	desc = f.run(t, "docs lookup", "python", "key", "gather")
	assert.Equal(t, "No entry called `gather`.", desc)
}

func TestSearchReportsFetchFailure(t *testing.T) {
	f := newFixture(t, http.StatusNotFound)
	require.NoError(t, appcmdtest.Run(context.Background(), f.client, "docs search",
		appcmdtest.Opt("site", appcmd.OptionString, "python"),
		appcmdtest.Opt("query", appcmd.OptionString, "gather"),
	))
	assert.Equal(t, int32(1), f.hits.Load())
	require.Len(t, f.backend.Followups, 1)
	assert.Contains(t, f.backend.Followups[0].Embeds[0].Description, "404")
}

func TestUnknownSite(t *testing.T) {
	d := New(nil)
	_, err := d.inventory(context.Background(), "perl")
	assert.ErrorIs(t, err, ErrUnknownSite)
}
