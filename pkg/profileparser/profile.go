// Package profileparser validates a probed host's profile and about pages
// against the fleet's expected nitter handle and build metadata.
package profileparser

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNoProfileCard = errors.New("no profile card username found")
	ErrNoTimeline    = errors.New("no timeline found")
)

const (
	selectorProfileCardName = ".profile-card-username"
	selectorTimeline        = ".timeline"
	selectorTimelineItem    = ".timeline-item"
)

// Profile is the parsed handle and post count shown on a profile page.
type Profile struct {
	Handle    string
	PostCount int
}

// ParseProfile extracts the handle and post count from a profile page's
// HTML. Post count is the number of .timeline-item elements found within
// the first .timeline container, not a page-wide count.
func ParseProfile(html string) (Profile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Profile{}, err
	}

	name := doc.Find(selectorProfileCardName).First()
	if name.Length() == 0 {
		return Profile{}, ErrNoProfileCard
	}

	timeline := doc.Find(selectorTimeline).First()
	if timeline.Length() == 0 {
		return Profile{}, ErrNoTimeline
	}

	count := timeline.Find(selectorTimelineItem).Length()

	return Profile{
		Handle:    strings.TrimSpace(name.Text()),
		PostCount: count,
	}, nil
}
