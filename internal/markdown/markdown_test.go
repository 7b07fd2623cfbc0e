package markdown

import (
	"strings"
	"testing"
)

func TestToPlainText_Inline(t *testing.T) {
	got := ToPlainText([]byte("Hello *world*, we **utilize** `code` here."))
	want := "Hello world, we utilize code here."
	if got != want {
		t.Errorf("ToPlainText = %q, want %q", got, want)
	}
}

func TestToPlainText_Entities(t *testing.T) {
	got := ToPlainText([]byte(`Salt & pepper "quoted" here.`))
	if !strings.Contains(got, `Salt & pepper "quoted"`) {
		t.Errorf("entities not decoded: %q", got)
	}
	if strings.Contains(got, "&amp;") || strings.Contains(got, "&quot;") {
		t.Errorf("raw entity left in %q", got)
	}
}

func TestToPlainText_Blocks(t *testing.T) {
	md := "# Results\n\nThe first paragraph.\n\n- first item\n- second item\n\nThe [last](https://example.com) paragraph.\n"
	got := ToPlainText([]byte(md))

	for _, want := range []string{"Results", "The first paragraph.", "first item", "second item", "The last paragraph."} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
	for _, unwanted := range []string{"#", "<", "https://example.com", "\n\n\n"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("unexpected %q in %q", unwanted, got)
		}
	}
	if !strings.Contains(got, "Results\n\nThe first paragraph.") {
		t.Errorf("expected blocks separated by a blank line, got %q", got)
	}
	if got != strings.TrimSpace(got) {
		t.Errorf("expected trimmed output, got %q", got)
	}
}

func TestToPlainText_Empty(t *testing.T) {
	if got := ToPlainText(nil); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestStripHTMLTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>plain</p>", "plain"},
		{`<a href="x">link</a> text`, "link text"},
		{"no tags", "no tags"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripHTMLTags(tt.in); got != tt.want {
			t.Errorf("StripHTMLTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
