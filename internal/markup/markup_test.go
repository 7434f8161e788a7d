package markup

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/smileynet/compview"
)

func TestNewHoverData(t *testing.T) {
	// Given a found image inside a root
	d := NewHoverData("Hero03", "/ws/src/blocks/Hero03.preview.png", []string{"/ws"})

	// Then the derived fields are filled in
	if d.ImageURI != "file:///ws/src/blocks/Hero03.preview.png" {
		t.Errorf("ImageURI = %q", d.ImageURI)
	}
	if d.ImageFile != "src/blocks/Hero03.preview.png" {
		t.Errorf("ImageFile = %q", d.ImageFile)
	}
	if len(d.Expected) != 2 || d.Expected[0] != "Hero03.preview.png" || d.Expected[1] != "__previews__/Hero03.png" {
		t.Errorf("Expected = %v", d.Expected)
	}
}

func TestNewHoverData_NoImage(t *testing.T) {
	d := NewHoverData("Hero03", "", nil)
	if d.ImagePath != "" || d.ImageURI != "" || d.ImageFile != "" {
		t.Errorf("image fields should be empty, got %+v", d)
	}
}

func TestCompose_EmbeddedTemplates(t *testing.T) {
	l := NewLoader(compview.Templates)
	found := NewHoverData("Card", "/ws/Card.preview.png", []string{"/ws"})
	missing := NewHoverData("Card", "", []string{"/ws"})

	tests := []struct {
		name     string
		template string
		data     any
		want     []string
		notWant  []string
	}{
		{name: "empty", template: Empty, data: nil, want: []string{"Component Preview"}},
		{name: "not found", template: NotFound, data: missing, want: []string{"Card.preview.png", "__previews__/Card.png"}},
		{name: "hover with image", template: Hover, data: found, want: []string{"**Card**", "](file:///ws/Card.preview.png)", "`Card.preview.png`"}, notWant: []string{"No preview"}},
		{name: "hover without image", template: Hover, data: missing, want: []string{"No preview image found", "__previews__/Card.png"}},
		{name: "tooltip with image", template: Tooltip, data: found, want: []string{`<img src="file:///ws/Card.preview.png" width="300" />`}},
		{name: "tooltip without image", template: Tooltip, data: missing, want: []string{"_No preview image found_"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := l.Compose(tc.template, tc.data)
			if err != nil {
				t.Fatalf("Compose() error = %v", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
			for _, w := range tc.notWant {
				if strings.Contains(got, w) {
					t.Errorf("output should not contain %q:\n%s", w, got)
				}
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	fsys := fstest.MapFS{
		"blank.tmpl":  {Data: []byte("  \n")},
		"broken.tmpl": {Data: []byte("{{.Name")},
		"strict.tmpl": {Data: []byte("{{.Missing}}")},
	}
	l := NewLoader(fsys)

	if _, err := l.Load("nope"); err == nil || !strings.Contains(err.Error(), "markup") {
		t.Errorf("missing template error = %v", err)
	}
	if _, err := l.Load("blank"); !errors.Is(err, ErrEmpty) {
		t.Errorf("blank template error = %v, want ErrEmpty", err)
	}
	if _, err := l.Load("../etc"); err == nil {
		t.Error("path traversal should be rejected")
	}
	if _, err := l.Compose("broken", nil); err == nil || !strings.Contains(err.Error(), "parsing") {
		t.Errorf("broken template error = %v", err)
	}
	if _, err := l.Compose("strict", map[string]string{}); err == nil {
		t.Error("missing key should be an error")
	}
}

func TestCompose_LocalOverride(t *testing.T) {
	// Given a local template directory overriding the not-found message
	dir := t.TempDir()
	writeFile(t, dir, "notfound.txt.tmpl", "nothing for {{.Name}}")

	// When composing through the overlay
	l := NewLoader(compview.OverlayFS(dir, compview.Templates))
	got, err := l.Compose(NotFound, NewHoverData("Card", "", nil))

	// Then the local template wins
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if got != "nothing for Card" {
		t.Errorf("Compose() = %q", got)
	}
}
