package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStringListAccumulates(t *testing.T) {
	var l stringList
	for _, v := range []string{"a@x.test", "b@x.test"} {
		if err := l.Set(v); err != nil {
			t.Fatalf("Set(%q): %v", v, err)
		}
	}
	if len(l) != 2 || l[0] != "a@x.test" || l[1] != "b@x.test" {
		t.Fatalf("unexpected list %v", l)
	}
}

func TestResolveBodyInline(t *testing.T) {
	text, html, err := resolveBody("hello", "", false)
	if err != nil {
		t.Fatalf("resolveBody: %v", err)
	}
	if text != "hello" || html != "" {
		t.Fatalf("got text=%q html=%q", text, html)
	}
}

func TestResolveBodyHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.html")
	if err := os.WriteFile(path, []byte("<p>hi</p>"), 0o644); err != nil {
		t.Fatal(err)
	}

	text, html, err := resolveBody("", path, true)
	if err != nil {
		t.Fatalf("resolveBody: %v", err)
	}
	if text != "" || html != "<p>hi</p>" {
		t.Fatalf("got text=%q html=%q", text, html)
	}
}

func TestResolveBodyExclusive(t *testing.T) {
	if _, _, err := resolveBody("x", "y", false); err == nil {
		t.Fatal("expected error for both -body and -body-file")
	}
}
