package profileparser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNoAboutElement    = errors.New("no version paragraph found on about page")
	ErrNoCommitLinkFound = errors.New("no link found in version paragraph")
)

// InvalidCommitFormatError means the version link's text didn't look like a
// semver or short git hash.
type InvalidCommitFormatError struct {
	Text string
}

func (e *InvalidCommitFormatError) Error() string {
	return fmt.Sprintf("version link text %q doesn't match expected commit format", e.Text)
}

// commitFormat accepts link text that starts with either a semver triplet
// or a short (7+ char) hex/alphanumeric commit hash, matching the two
// build-label styles nitter actually ships; whatever follows that prefix
// (such as the "-72d8f35" in "2023.07.22-72d8f35") is not checked.
var commitFormat = regexp.MustCompile(`(?i)^((\d+\.\d+\.\d+)|[a-zA-Z0-9]{7,})`)

// Version is the parsed build identifier and its source link, found on an
// instance's about page.
type Version struct {
	Text string
	URL  string
}

// ParseAbout locates the first <p> mentioning "Version" and validates the
// first link within it against the expected commit/semver format. Unlike
// the handle-only lookup this is derived from, it also returns the link's
// href so callers can surface it as the instance's upstream commit link.
func ParseAbout(html string) (Version, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Version{}, err
	}

	var versionPara *goquery.Selection
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if strings.Contains(p.Text(), "Version") {
			versionPara = p
			return false
		}
		return true
	})
	if versionPara == nil {
		return Version{}, ErrNoAboutElement
	}

	link := versionPara.Find("a").First()
	if link.Length() == 0 {
		return Version{}, ErrNoCommitLinkFound
	}

	text := strings.TrimSpace(link.Text())
	if !commitFormat.MatchString(text) {
		return Version{}, &InvalidCommitFormatError{Text: text}
	}

	href, _ := link.Attr("href")

	return Version{Text: text, URL: href}, nil
}
