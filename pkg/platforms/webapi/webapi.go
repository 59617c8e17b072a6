// Package webapi searches a platform through a JSON search endpoint.
package webapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cmaudit/claimscope/pkg/config"
	"github.com/cmaudit/claimscope/pkg/platforms"
	"github.com/cmaudit/claimscope/pkg/whttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

// SongPlaceholder is replaced by the escaped song name in the URL template.
const SongPlaceholder = "{song}"

// Source queries a JSON search endpoint. Column names in the platform
// mapping are gjson paths relative to one result element.
type Source struct {
	name     string
	url      string
	rowsPath string
	columns  []string
	client   *retryablehttp.Client
}

// New builds a source for p using client.
func New(p config.Platform, client *retryablehttp.Client) (*Source, error) {
	if !strings.Contains(p.URL, SongPlaceholder) {
		return nil, fmt.Errorf("platform %s: url must contain %s", p.Name, SongPlaceholder)
	}
	cols := make([]string, 0, len(p.Columns))
	for src := range p.Columns {
		cols = append(cols, src)
	}
	return &Source{name: p.Name, url: p.URL, rowsPath: p.RowsPath, columns: cols, client: client}, nil
}

func (s *Source) Name() string { return s.name }

// SearchSongs implements platforms.SongSource.
func (s *Source) SearchSongs(ctx context.Context, song string) ([]platforms.RawRow, error) {
	u := strings.ReplaceAll(s.url, SongPlaceholder, url.QueryEscape(strings.TrimSpace(song)))
	res, err := whttp.Get(ctx, s.client, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		if errors.Is(err, whttp.ErrStatus) && res != nil && res.StatusCode < 500 && res.StatusCode != 429 {
			return nil, platforms.Permanent(err)
		}
		return nil, err
	}
	return s.parse(res.Body)
}

func (s *Source) parse(body []byte) ([]platforms.RawRow, error) {
	if !gjson.ValidBytes(body) {
		return nil, platforms.Permanent(fmt.Errorf("%s: response is not valid JSON", s.name))
	}
	items := gjson.ParseBytes(body)
	if s.rowsPath != "" {
		items = items.Get(s.rowsPath)
	}
	if !items.Exists() {
		return nil, nil
	}
	if !items.IsArray() {
		return nil, platforms.Permanent(fmt.Errorf("%s: %q is not an array", s.name, s.rowsPath))
	}

	var out []platforms.RawRow
	for _, item := range items.Array() {
		row := make(platforms.RawRow)
		item.ForEach(func(key, value gjson.Result) bool {
			if !value.IsObject() && !value.IsArray() {
				row[key.String()] = value.String()
			}
			return true
		})
		for _, col := range s.columns {
			if v := item.Get(col); v.Exists() {
				row[col] = text(v)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// text flattens a result; arrays become comma-joined values.
func text(r gjson.Result) string {
	if !r.IsArray() {
		return r.String()
	}
	var parts []string
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}
