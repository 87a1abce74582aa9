package wikiparser

import "testing"

const sampleHTML = `
<div id="wiki-body">
<table>
<thead><tr><th>URL</th><th>Online</th><th>Country</th><th>SSL Provider</th></tr></thead>
<tbody>
<tr><td><a href="https://nitter.example.org/">nitter.example.org</a></td><td>✅</td><td>France</td><td>Let's Encrypt</td></tr>
<tr><td><a href="https://nitter.down.example/">nitter.down.example</a></td><td>❌</td><td>Germany</td><td>Let's Encrypt</td></tr>
</tbody>
</table>
</div>
`

func TestParseInstanceList(t *testing.T) {
	instances, err := Parse(sampleHTML, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	if len(instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(instances))
	}

	up := instances["nitter.example.org"]
	if !up.Online {
		t.Errorf("expected nitter.example.org to be online")
	}
	if up.Country != "France" {
		t.Errorf("expected country France, got %q", up.Country)
	}
	if up.SSLProvider != "Let's Encrypt" {
		t.Errorf("expected Let's Encrypt, got %q", up.SSLProvider)
	}

	down := instances["nitter.down.example"]
	if down.Online {
		t.Errorf("expected nitter.down.example to be offline")
	}
}

func TestParseAdditionalHostsNeverOverridesParsed(t *testing.T) {
	instances, err := Parse(sampleHTML, []AdditionalHost{
		{URL: "https://nitter.example.org", Country: "Overridden"},
		{URL: "https://extra.example.net", Country: "Canada"},
	}, true)
	if err != nil {
		t.Fatal(err)
	}

	if instances["nitter.example.org"].Country != "France" {
		t.Errorf("additional host config must not override a parsed entry")
	}

	extra, ok := instances["extra.example.net"]
	if !ok {
		t.Fatal("expected extra.example.net to be merged in")
	}
	if !extra.Online {
		t.Errorf("additional hosts default to online")
	}
}

func TestParseMissingWikiDiv(t *testing.T) {
	if _, err := Parse("<html><body>nothing here</body></html>", nil, true); err != ErrNoWikiDiv {
		t.Fatalf("expected ErrNoWikiDiv, got %v", err)
	}
}

func TestParseAbortOnErr(t *testing.T) {
	malformed := `<div id="wiki-body"><table><thead><tr><th>Online</th></tr></thead><tbody><tr><td>no link here</td></tr></tbody></table></div>`

	if _, err := Parse(malformed, nil, true); err == nil {
		t.Fatal("expected an error with abortOnErr=true")
	}

	instances, err := Parse(malformed, nil, false)
	if err != nil {
		t.Fatalf("expected no error with abortOnErr=false, got %v", err)
	}
	if len(instances) != 0 {
		t.Errorf("expected malformed row to be skipped")
	}
}
