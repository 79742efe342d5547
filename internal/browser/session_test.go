package browser

import (
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

func TestResolveAnchorsResolvesRelativeAndStripsFragments(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<a href="/docs/intro">intro</a>
		<a href="reference#section">ref</a>
		<a href="https://other.example/page">abs</a>
	</body></html>`)
	base := mustURL(t, "https://site.example/docs/")

	got := ResolveAnchors(doc, base, "a[href]")
	want := []string{
		"https://site.example/docs/intro",
		"https://site.example/docs/reference",
		"https://other.example/page",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveAnchorsSkipsNonNavigableLinks(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<a href="javascript:void(0)">js</a>
		<a href="mailto:someone@example.com">mail</a>
		<a href="ftp://files.example/x">ftp</a>
		<a href="">empty</a>
		<a>missing</a>
		<a href="/real">real</a>
	</body></html>`)
	base := mustURL(t, "https://site.example/")

	got := ResolveAnchors(doc, base, "a[href]")
	want := []string{"https://site.example/real"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveAnchorsScopesToSelector(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<nav>
			<a href="/guide/one">one</a>
			<a href="/guide/two">two</a>
		</nav>
		<main><a href="/outside">outside</a></main>
	</body></html>`)
	base := mustURL(t, "https://site.example/")

	got := ResolveAnchors(doc, base, "nav a[href]")
	want := []string{
		"https://site.example/guide/one",
		"https://site.example/guide/two",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveAnchorsDeduplicatesPreservingDocumentOrder(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<a href="/b">b</a>
		<a href="/a">a</a>
		<a href="/b#anchor">b again</a>
	</body></html>`)
	base := mustURL(t, "https://site.example/")

	got := ResolveAnchors(doc, base, "a[href]")
	want := []string{"https://site.example/b", "https://site.example/a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestStyleInjectionScriptEscapesForJavaScript(t *testing.T) {
	css := "div::after { content: \"🖨\"; }\nbody { width: 100% }"

	script, err := styleInjectionScript(css)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(script, `\U`) {
		t.Fatalf("script contains a \\U escape, invalid in JavaScript: %s", script)
	}
	if !strings.Contains(script, `\"🖨\"`) {
		t.Fatalf("expected the rune above the BMP to survive encoding: %s", script)
	}
	if !strings.Contains(script, `\n`) {
		t.Fatalf("expected the newline to be escaped: %s", script)
	}
	if !strings.Contains(script, "el.textContent = \"") {
		t.Fatalf("expected a quoted string literal assignment: %s", script)
	}
}
