package versioncheck

import "testing"

func TestCommitStateDerivedPredicates(t *testing.T) {
	testCases := []struct {
		state             CommitState
		wantUpstream      bool
		wantLatestVersion bool
	}{
		{Outdated, true, false},
		{Current, true, true},
		{CustomBranch, false, false},
		{UnknownCommit, false, false},
		{Missing, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.state.String(), func(t *testing.T) {
			if got := tc.state.IsUpstream(); got != tc.wantUpstream {
				t.Errorf("IsUpstream() = %v, want %v", got, tc.wantUpstream)
			}
			if got := tc.state.IsLatestVersion(); got != tc.wantLatestVersion {
				t.Errorf("IsLatestVersion() = %v, want %v", got, tc.wantLatestVersion)
			}
		})
	}
}

func TestLastPathSegment(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
	}{
		{"https://git.example.com/foo/bar/commit/deadbeef", "deadbeef"},
		{"https://git.example.com/foo/bar/commit/deadbeef/", "deadbeef"},
		{"", ""},
		{"deadbeef", "deadbeef"},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			if got := lastPathSegment(tc.url); got != tc.expected {
				t.Errorf("lastPathSegment(%q) = %q, want %q", tc.url, got, tc.expected)
			}
		})
	}
}

func TestGenerationalCacheSurvivesOneBump(t *testing.T) {
	c, err := newGenerationalCache(16)
	if err != nil {
		t.Fatal(err)
	}

	c.Set("deadbeef", CommitInfo{State: Current})

	if _, found := c.Get("deadbeef"); !found {
		t.Fatal("expected cache hit before generation bump")
	}

	c.Bump()

	info, found := c.Get("deadbeef")
	if !found {
		t.Fatal("expected cache hit at generation+1, still serving the stale-but-fresh entry")
	}
	if info.State != Current {
		t.Fatalf("expected cached state %v, got %v", Current, info.State)
	}

	c.Bump()
	c.Bump()

	if _, found := c.Get("deadbeef"); found {
		t.Fatal("expected cache miss two bumps after the last read at generation+1")
	}
}

func TestGenerationalCacheHitPromotesGeneration(t *testing.T) {
	c, err := newGenerationalCache(16)
	if err != nil {
		t.Fatal(err)
	}

	c.Set("deadbeef", CommitInfo{State: Current})

	c.Bump()
	if _, found := c.Get("deadbeef"); !found {
		t.Fatal("expected cache hit at generation+1")
	}

	c.Bump()
	if _, found := c.Get("deadbeef"); !found {
		t.Fatal("expected cache hit at generation+2, since the +1 read promoted the entry")
	}
}
