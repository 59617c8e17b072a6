// Package webpage scrapes song search results rendered as an HTML table.
package webpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cmaudit/claimscope/pkg/config"
	"github.com/cmaudit/claimscope/pkg/platforms"
	"github.com/cmaudit/claimscope/pkg/whttp"
	"github.com/hashicorp/go-retryablehttp"
)

const defaultSelector = "table"

// Source reads rows from the first table matching its selector. Header cell
// texts become the raw column names.
type Source struct {
	name     string
	url      string
	selector string
	client   *retryablehttp.Client
}

// New builds a source for p using client.
func New(p config.Platform, client *retryablehttp.Client) (*Source, error) {
	if !strings.Contains(p.URL, "{song}") {
		return nil, fmt.Errorf("platform %s: url must contain {song}", p.Name)
	}
	sel := p.Selector
	if sel == "" {
		sel = defaultSelector
	}
	return &Source{name: p.Name, url: p.URL, selector: sel, client: client}, nil
}

func (s *Source) Name() string { return s.name }

// SearchSongs implements platforms.SongSource.
func (s *Source) SearchSongs(ctx context.Context, song string) ([]platforms.RawRow, error) {
	u := strings.ReplaceAll(s.url, "{song}", url.QueryEscape(strings.TrimSpace(song)))
	res, err := whttp.Get(ctx, s.client, u, nil)
	if err != nil {
		if errors.Is(err, whttp.ErrStatus) && res != nil && res.StatusCode < 500 && res.StatusCode != 429 {
			return nil, platforms.Permanent(err)
		}
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, platforms.Permanent(fmt.Errorf("%s: failed to parse HTML: %w", s.name, err))
	}
	return ParseTable(doc.Find(s.selector).First())
}

// ParseTable turns an HTML table into raw rows. An empty selection yields no
// rows.
func ParseTable(table *goquery.Selection) ([]platforms.RawRow, error) {
	if table.Length() == 0 {
		return nil, nil
	}

	var header []string
	table.Find("tr").First().Find("th,td").Each(func(_ int, c *goquery.Selection) {
		header = append(header, strings.TrimSpace(c.Text()))
	})
	if len(header) == 0 {
		return nil, platforms.Permanent(errors.New("result table has no header row"))
	}

	var out []platforms.RawRow
	table.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, tr *goquery.Selection) {
		row := make(platforms.RawRow, len(header))
		tr.Find("td").Each(func(i int, td *goquery.Selection) {
			if i >= len(header) {
				return
			}
			v, ok := td.Attr("data-value")
			if !ok {
				v = td.Text()
			}
			row[header[i]] = strings.TrimSpace(v)
		})
		if len(row) > 0 {
			out = append(out, row)
		}
	})
	return out, nil
}
