// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package index

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
sources:
  - title: Tax Credits
    url: https://occams.example/tax
    path: pages/tax.md
  - title: About
    url: https://occams.example/about
`), 0644))

	sources, err := LoadSources(file)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, Source{
		Title: "Tax Credits",
		URL:   "https://occams.example/tax",
		Path:  filepath.Join(dir, "pages", "tax.md"),
	}, sources[0])
	assert.Empty(t, sources[1].Path)
}

func TestLoadSources_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSources(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	file := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("sources:\n  - title: Nowhere\n"), 0644))
	_, err = LoadSources(file)
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestLoader_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "services.md")
	htmlPath := filepath.Join(dir, "about.html")
	require.NoError(t, os.WriteFile(textPath, []byte("We provide advisory services."), 0644))
	require.NoError(t, os.WriteFile(htmlPath, []byte(
		"<html><head><title>x</title></head><body><p>Founded in 2012.</p></body></html>"), 0644))

	loader := NewLoader(nil)
	ctx := context.Background()

	doc, err := loader.Load(ctx, Source{Title: "Services", URL: "https://occams.example/services", Path: textPath})
	require.NoError(t, err)
	assert.Equal(t, "We provide advisory services.", doc.Text)
	assert.Equal(t, "https://occams.example/services", doc.URL)

	doc, err = loader.Load(ctx, Source{Title: "About", Path: htmlPath})
	require.NoError(t, err)
	assert.Equal(t, "Founded in 2012.", doc.Text)

	_, err = loader.Load(ctx, Source{Title: "Empty"})
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestLoader_FetchesURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><h1>Careers</h1></body></html>"))
	}))
	defer server.Close()

	loader := NewLoader(server.Client())
	ctx := context.Background()

	docs, err := loader.LoadAll(ctx, []Source{{Title: "Careers", URL: server.URL + "/careers"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Careers", docs[0].Text)
	assert.Equal(t, server.URL+"/careers", docs[0].URL)

	_, err = loader.Load(ctx, Source{URL: server.URL + "/missing"})
	assert.ErrorContains(t, err, "unexpected status 404")
}
