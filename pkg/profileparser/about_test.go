package profileparser

import "testing"

func TestParseAboutSemver(t *testing.T) {
	html := `<p>Running Version <a href="https://github.com/zedeus/nitter/commit/72d8f35">2023.07.22-72d8f35</a></p>`
	v, err := ParseAbout(html)
	if err != nil {
		t.Fatal(err)
	}
	if v.Text != "2023.07.22-72d8f35" {
		t.Errorf("expected version text, got %q", v.Text)
	}
	if v.URL != "https://github.com/zedeus/nitter/commit/72d8f35" {
		t.Errorf("expected version url to be captured, got %q", v.URL)
	}
}

func TestParseAboutShortHash(t *testing.T) {
	html := `<p>Version <a href="/commit/abc1234">abc1234</a></p>`
	v, err := ParseAbout(html)
	if err != nil {
		t.Fatal(err)
	}
	if v.Text != "abc1234" {
		t.Errorf("expected abc1234, got %q", v.Text)
	}
}

func TestParseAboutNoVersionParagraph(t *testing.T) {
	_, err := ParseAbout(`<p>Nothing to see here</p>`)
	if err != ErrNoAboutElement {
		t.Errorf("expected ErrNoAboutElement, got %v", err)
	}
}

func TestParseAboutNoLink(t *testing.T) {
	_, err := ParseAbout(`<p>Version unknown</p>`)
	if err != ErrNoCommitLinkFound {
		t.Errorf("expected ErrNoCommitLinkFound, got %v", err)
	}
}

func TestParseAboutInvalidFormat(t *testing.T) {
	html := `<p>Version <a href="/x">not-a-version</a></p>`
	_, err := ParseAbout(html)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*InvalidCommitFormatError); !ok {
		t.Errorf("expected *InvalidCommitFormatError, got %T", err)
	}
}
