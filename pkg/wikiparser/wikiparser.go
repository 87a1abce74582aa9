package wikiparser

import (
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/0xpr03/nitter-status/pkg/common"

	"github.com/PuerkitoBio/goquery"
)

const checkboxGlyph = "✅" // ✅

var (
	ErrNoWikiDiv       = errors.New("no div#wiki-body found")
	ErrNoInstanceTable = errors.New("no table found containing instances")
	errMalformedRow    = errors.New("malformed instance row")
)

// Instance is one parsed row of the upstream instance-list wiki page.
type Instance struct {
	Domain      string
	URL         string
	Online      bool
	SSLProvider string
	Country     string
}

// AdditionalHost is a statically configured host merged in after parsing.
type AdditionalHost struct {
	URL     string
	Country string
}

// Parse extracts the instance table from html. additionalHosts are merged
// in afterward and never override a domain already parsed from the page.
// abortOnErr switches between skip-and-log (production) and fail-fast
// (tests) for malformed rows.
func Parse(html string, additionalHosts []AdditionalHost, abortOnErr bool) (map[string]Instance, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	wikiDiv := doc.Find(`div[id="wiki-body"]`).First()
	if wikiDiv.Length() == 0 {
		return nil, ErrNoWikiDiv
	}

	var instanceTable *goquery.Selection
	wikiDiv.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if strings.Contains(table.Text(), "Online") {
			instanceTable = table
			return false
		}
		return true
	})

	if instanceTable == nil {
		return nil, ErrNoInstanceTable
	}

	instances := make(map[string]Instance, 50)

	var rowErr error
	instanceTable.Find("tbody > tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		instance, err := parseRow(row)
		if err != nil {
			if abortOnErr {
				rowErr = err
				return false
			}
			slog.Warn("Skipping malformed instance row", common.ErrAttr(err))
			return true
		}

		if _, exists := instances[instance.Domain]; exists {
			slog.Warn("Parsed duplicate instance domain", "domain", instance.Domain)
		}
		instances[instance.Domain] = instance

		return true
	})

	if rowErr != nil {
		return nil, rowErr
	}

	for _, add := range additionalHosts {
		parsed, err := url.Parse(add.URL)
		if err != nil || len(parsed.Host) == 0 {
			slog.Warn("Ignoring additional instance", "instance", add.URL)
			continue
		}

		if _, exists := instances[parsed.Host]; exists {
			continue
		}

		instances[parsed.Host] = Instance{
			Domain:      parsed.Host,
			URL:         add.URL,
			Online:      true,
			SSLProvider: "",
			Country:     add.Country,
		}
	}

	return instances, nil
}

func parseRow(row *goquery.Selection) (Instance, error) {
	cols := row.Find("td")

	urlCol := cols.First()
	if urlCol.Length() == 0 {
		return Instance{}, errMalformedRow
	}

	href, ok := urlCol.Find("a").First().Attr("href")
	if !ok {
		return Instance{}, errMalformedRow
	}

	trimmedURL := strings.TrimSuffix(strings.TrimSpace(href), "/")

	parsed, err := url.Parse(trimmedURL)
	if err != nil || len(parsed.Host) == 0 {
		return Instance{}, errMalformedRow
	}

	var texts []string
	cols.Each(func(i int, col *goquery.Selection) {
		if i == 0 {
			return
		}
		texts = append(texts, col.Text())
	})

	if len(texts) < 3 {
		return Instance{}, errMalformedRow
	}

	return Instance{
		Domain:      parsed.Host,
		URL:         trimmedURL,
		Online:      texts[0] == checkboxGlyph,
		Country:     texts[1],
		SSLProvider: texts[2],
	}, nil
}
