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
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"gopkg.in/yaml.v3"
)

// Document is one page of company content to be indexed.
type Document struct {
	Title string
	URL   string
	Text  string
}

// Source names a page to index. Path, when set, is read from disk and URL is
// kept only as the citation; otherwise URL is fetched.
type Source struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
	Path  string `yaml:"path,omitempty"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads a YAML sources file. Relative paths are resolved against
// the file's directory.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i, src := range file.Sources {
		if src.URL == "" && src.Path == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrInvalidSource, i)
		}
		if src.Path != "" && !filepath.IsAbs(src.Path) {
			file.Sources[i].Path = filepath.Join(base, src.Path)
		}
	}
	return file.Sources, nil
}

// Loader turns sources into documents.
type Loader struct {
	client *http.Client
}

// NewLoader creates a loader. A nil client gets a 30 second timeout.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{client: client}
}

// LoadAll loads every source in order, stopping at the first failure.
func (l *Loader) LoadAll(ctx context.Context, sources []Source) ([]Document, error) {
	docs := make([]Document, 0, len(sources))
	for _, src := range sources {
		doc, err := l.Load(ctx, src)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Load reads one source. HTML, from a URL or a .html file, is reduced to its
// text; anything else is taken as plain text.
func (l *Loader) Load(ctx context.Context, src Source) (Document, error) {
	var (
		r      io.ReadCloser
		isHTML bool
		err    error
	)

	switch {
	case src.Path != "":
		r, err = os.Open(src.Path)
		if err != nil {
			return Document{}, fmt.Errorf("open %s: %w", src.Path, err)
		}
		ext := strings.ToLower(filepath.Ext(src.Path))
		isHTML = ext == ".html" || ext == ".htm"
	case src.URL != "":
		r, isHTML, err = l.fetch(ctx, src.URL)
		if err != nil {
			return Document{}, err
		}
	default:
		return Document{}, ErrInvalidSource
	}
	defer r.Close()

	var pages []schema.Document
	if isHTML {
		pages, err = documentloaders.NewHTML(r).Load(ctx)
	} else {
		pages, err = documentloaders.NewText(r).Load(ctx)
	}
	if err != nil {
		return Document{}, fmt.Errorf("load %s: %w", src.label(), err)
	}

	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		texts = append(texts, page.PageContent)
	}

	return Document{
		Title: src.Title,
		URL:   src.URL,
		Text:  strings.Join(texts, "\n"),
	}, nil
}

func (l *Loader) fetch(ctx context.Context, url string) (io.ReadCloser, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s: %w", url, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, false, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	isHTML := contentType == "" || strings.Contains(contentType, "html")
	return resp.Body, isHTML, nil
}

func (s Source) label() string {
	if s.Path != "" {
		return s.Path
	}
	return s.URL
}
