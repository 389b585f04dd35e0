package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybernews/internal/config"
	"cybernews/internal/models"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Security News</title>
  <item>
    <title>Ransomware hits  hospital network</title>
    <link>https://news.example.com/a/1</link>
    <description>A ransomware attack disrupted services.</description>
    <pubDate>Mon, 02 Sep 2024 10:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Duplicate entry</title>
    <link>https://news.example.com/a/1</link>
  </item>
  <item>
    <title>Relative link</title>
    <link>/a/2</link>
  </item>
  <item>
    <title>No link</title>
  </item>
</channel>
</rss>`

const listingHTML = `<html><body>
<ul class="news">
  <li><a href="/advisory/CIAD-2024-0001">Advisory One</a></li>
  <li><a href="advisory/CIAD-2024-0002"> Advisory
      Two </a></li>
  <li><a href="#top">Top</a></li>
  <li><a href="javascript:void(0)">JS</a></li>
  <li><a href="/advisory/CIAD-2024-0001">Advisory One again</a></li>
  <li><span>no anchor</span></li>
</ul>
</body></html>`

func TestFeedDiscoverer(t *testing.T) {
	raw := models.RawFetchResult{URL: "https://news.example.com/feed.xml", Body: []byte(rssFeed)}

	links, err := NewFeedDiscoverer(0).Discover(raw)
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, "https://news.example.com/a/1", links[0].URL)
	assert.Equal(t, "Ransomware hits hospital network", links[0].Title)
	assert.Equal(t, "A ransomware attack disrupted services.", links[0].Summary)
	assert.Equal(t, "2024-09-02T10:00:00Z", links[0].Published)
	assert.Equal(t, "https://news.example.com/a/2", links[1].URL)
}

func TestFeedDiscoverer_MaxItems(t *testing.T) {
	raw := models.RawFetchResult{URL: "https://news.example.com/feed.xml", Body: []byte(rssFeed)}

	links, err := NewFeedDiscoverer(1).Discover(raw)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestFeedDiscoverer_Errors(t *testing.T) {
	_, err := NewFeedDiscoverer(0).Discover(models.RawFetchResult{})
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = NewFeedDiscoverer(0).Discover(models.RawFetchResult{Body: []byte("not a feed")})
	assert.Error(t, err)
}

func TestListingDiscoverer(t *testing.T) {
	raw := models.RawFetchResult{URL: "https://cert-in.org.in/list/index.html", Body: []byte(listingHTML)}

	links, err := NewListingDiscoverer("ul.news li", 0).Discover(raw)
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, "https://cert-in.org.in/advisory/CIAD-2024-0001", links[0].URL)
	assert.Equal(t, "Advisory One", links[0].Title)
	assert.Equal(t, "https://cert-in.org.in/list/advisory/CIAD-2024-0002", links[1].URL)
	assert.Equal(t, "Advisory Two", links[1].Title)
}

func TestListingDiscoverer_MaxLinksAndNoMatch(t *testing.T) {
	raw := models.RawFetchResult{URL: "https://cert-in.org.in/", Body: []byte(listingHTML)}

	links, err := NewListingDiscoverer("ul.news a", 1).Discover(raw)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	_, err = NewListingDiscoverer("div.missing a", 5).Discover(raw)
	assert.ErrorIs(t, err, ErrNoLinks)
}

func TestForSource(t *testing.T) {
	src := config.SourceConfig{
		ID:      "cert-in",
		FeedURL: "https://cert-in.org.in/rss.xml",
		Listing: &config.ListingConfig{URL: "https://cert-in.org.in/list", LinkSelector: "a.item"},
		URLs:    []string{"https://cert-in.org.in/list", "https://backup.cert-in.org.in/list"},
	}

	entries := ForSource(src)
	require.Len(t, entries, 3)

	assert.Equal(t, "https://cert-in.org.in/rss.xml", entries[0].URL)
	assert.IsType(t, &FeedDiscoverer{}, entries[0].Discoverer)
	assert.Equal(t, "https://cert-in.org.in/list", entries[1].URL)
	assert.Equal(t, "https://backup.cert-in.org.in/list", entries[2].URL)
	assert.IsType(t, &ListingDiscoverer{}, entries[2].Discoverer)

	assert.Empty(t, ForSource(config.SourceConfig{URLs: []string{"https://x"}}))
}
