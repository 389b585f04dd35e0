package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybernews/internal/config"
)

const jsonLDPage = `<html><head>
<title>Site | Ignored</title>
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[
 {"@type":"WebSite","name":"Site"},
 {"@type":["NewsArticle"],"headline":"Lazarus group targets  banks",
  "articleBody":"<p>The Lazarus group used spear phishing emails against banks.</p>",
  "datePublished":"2024-09-02T08:30:00+05:30"}
]}</script>
</head><body><p>irrelevant</p></body></html>`

const metaPage = `<html><head>
<title>Fallback title</title>
<meta property="og:title" content="OG headline about a data breach">
<meta name="description" content="Short summary.">
<meta property="article:published_time" content="2024-09-01T12:00:00Z">
</head><body></body></html>`

const selectorPage = `<html><body>
<div class="advisory">
  <h2 class="adv-title">CERT-In Advisory CIAD-2024-0042</h2>
  <span class="adv-date" data-x="1">Original Issue Date: September 02, 2024</span>
  <div class="adv-body"><p>Multiple vulnerabilities have been reported in Google Chrome.</p><p>Upgrade to the latest version.</p></div>
</div>
</body></html>`

const genericPage = `<html><head><title>Generic Title</title></head><body>
<nav><p>Home | News | Contact us for more information about everything here</p></nav>
<main>
  <h1>Hospital hit by ransomware attack</h1>
  <p>Posted 02/09/2024</p>
  <p>A ransomware attack disrupted services at a regional hospital on Monday morning.</p>
  <p>Officials said patient data may have been exposed during the incident.</p>
</main>
<footer><p>All rights reserved. Subscribe to our newsletter for more updates.</p></footer>
</body></html>`

const tablePage = `<html><body>
<h1>Vulnerability Note CIVN-2024-0100</h1>
<table>
<tr><td>Overview</td><td>A remote code execution vulnerability exists in Apache Struts.</td></tr>
<tr><td>Severity</td><td>High</td></tr>
</table>
</body></html>`

func TestMetaStrategy_JSONLD(t *testing.T) {
	rec, ok := NewMetaStrategy().TryExtract(page(jsonLDPage))
	require.True(t, ok)

	assert.Equal(t, "Lazarus group targets banks", rec.Title)
	assert.Equal(t, "The Lazarus group used spear phishing emails against banks.", rec.Body)
	assert.Equal(t, "2024-09-02T08:30:00+05:30", rec.PublishedAt)
}

func TestMetaStrategy_MetaTags(t *testing.T) {
	rec, ok := NewMetaStrategy().TryExtract(page(metaPage))
	require.True(t, ok)

	assert.Equal(t, "OG headline about a data breach", rec.Title)
	assert.Equal(t, "Short summary.", rec.Body)
	assert.Equal(t, "2024-09-01T12:00:00Z", rec.PublishedAt)
}

func TestSelectorStrategy(t *testing.T) {
	s := NewSelectorStrategy(config.SelectorConfig{
		Title: ".adv-title",
		Body:  ".adv-body",
		Date:  ".adv-date",
	})

	rec, ok := s.TryExtract(page(selectorPage))
	require.True(t, ok)

	assert.Equal(t, "CERT-In Advisory CIAD-2024-0042", rec.Title)
	assert.Equal(t, "Multiple vulnerabilities have been reported in Google Chrome.\nUpgrade to the latest version.", rec.Body)
	assert.Equal(t, "Original Issue Date: September 02, 2024", rec.PublishedAt)

	_, ok = NewSelectorStrategy(config.SelectorConfig{Title: ".missing"}).TryExtract(page(selectorPage))
	assert.False(t, ok)
}

func TestGenericStrategy(t *testing.T) {
	rec, ok := NewGenericStrategy().TryExtract(page(genericPage))
	require.True(t, ok)

	assert.Equal(t, "Hospital hit by ransomware attack", rec.Title)
	assert.Contains(t, rec.Body, "A ransomware attack disrupted services")
	assert.Contains(t, rec.Body, "patient data may have been exposed")
	assert.NotContains(t, rec.Body, "newsletter")
	assert.NotContains(t, rec.Body, "Posted")
	assert.Equal(t, "02/09/2024", rec.PublishedAt)
}

func TestGenericStrategy_TableFallback(t *testing.T) {
	rec, ok := NewGenericStrategy().TryExtract(page(tablePage))
	require.True(t, ok)

	assert.Equal(t, "Vulnerability Note CIVN-2024-0100", rec.Title)
	assert.Contains(t, rec.Body, "remote code execution vulnerability exists in Apache Struts")
	assert.NotContains(t, rec.Body, "Severity")
}

func TestReadabilityStrategy(t *testing.T) {
	paragraph := "Security researchers disclosed a critical remote code execution vulnerability affecting widely deployed VPN appliances used by government agencies and banks. "
	body := `<html><head><title>Critical VPN flaw exploited</title></head><body>
<div id="menu"><a href="/">Home</a> <a href="/news">News</a></div>
<article><h1>Critical VPN flaw exploited</h1>` +
		"<p>" + strings.Repeat(paragraph, 3) + "</p>" +
		"<p>" + strings.Repeat(paragraph, 3) + "</p>" +
		"<p>" + strings.Repeat(paragraph, 3) + "</p>" +
		`</article></body></html>`

	rec, ok := NewReadabilityStrategy().TryExtract(page(body))
	require.True(t, ok)

	assert.Contains(t, rec.Body, "remote code execution vulnerability")
	assert.NotEmpty(t, rec.Title)
}

func TestExtract_DecodesDeclaredCharset(t *testing.T) {
	// "Café" in ISO-8859-1.
	body := []byte("<html><head><title>Caf\xe9 chain breached</title></head><body></body></html>")
	raw := page("")
	raw.Body = body
	raw.ContentType = "text/html; charset=iso-8859-1"

	rec, ok := NewMetaStrategy().TryExtract(raw)
	require.True(t, ok)
	assert.Equal(t, "Café chain breached", rec.Title)
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "Fish & chips said \"hello\"", HTMLToText("<p>Fish &amp; chips</p><p>said &quot;hello&quot;</p>"))
	assert.Equal(t, "plain text", HTMLToText("  plain \n text "))
}

func TestExtract_EndToEndWithRealStrategies(t *testing.T) {
	profile := Profile{NewMetaStrategy(), NewGenericStrategy()}

	rec := testExtractor().Extract(page(genericPage), profile)

	assert.False(t, rec.Partial)
	assert.Equal(t, "generic", rec.ExtractionMethod)
	assert.Equal(t, "Hospital hit by ransomware attack", rec.Title)
}
