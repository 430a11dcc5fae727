package fetch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		switch req.URL.Query().Get("request[slug]") {
		case "akismet":
			_, _ = rw.Write([]byte(`{"name": "Akismet", "slug": "akismet", "active_installs": 1000, "downloaded": 50}`))
		case "hello-dolly":
			_, _ = rw.Write([]byte(`{"name": "Hello Dolly", "slug": "hello-dolly", "active_installs": 25000}`))
		default:
			rw.WriteHeader(http.StatusNotFound)
			_, _ = rw.Write([]byte(`{"error": "Plugin not found."}`))
		}
	}))
	t.Cleanup(server.Close)

	out := &bytes.Buffer{}

	app := &cli.App{
		Name:     "plugin-monitor",
		Writer:   out,
		Commands: []*cli.Command{Command()},
	}

	err := app.Run([]string{
		"plugin-monitor", "fetch",
		"--catalog-url", server.URL,
		"--lookup-delay", "1ms",
		"--slugs", "akismet, missing, hello-dolly",
	})
	require.NoError(t, err)

	var doc struct {
		Summary struct {
			TotalActiveInstalls int `json:"total_active_installs"`
			TotalDownloads      int `json:"total_downloads"`
		} `json:"summary"`
		Plugins []struct {
			Slug string `json:"slug"`
		} `json:"plugins"`
	}

	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))

	assert.Equal(t, 26000, doc.Summary.TotalActiveInstalls)
	assert.Equal(t, 50, doc.Summary.TotalDownloads)
	require.Len(t, doc.Plugins, 2)
	assert.Equal(t, "akismet", doc.Plugins[0].Slug)
	assert.Equal(t, "hello-dolly", doc.Plugins[1].Slug)
}

func TestCommand_noSlugs(t *testing.T) {
	app := &cli.App{
		Name:     "plugin-monitor",
		Writer:   &bytes.Buffer{},
		Commands: []*cli.Command{Command()},
	}

	err := app.Run([]string{"plugin-monitor", "fetch", "--slugs", " , "})
	assert.Error(t, err)
}
