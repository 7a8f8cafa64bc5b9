// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package htmlconv

import (
	"strings"
	"testing"
)

func TestConvert(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "headings and emphasis",
			html: "<h2>Title</h2><p>Some <strong>bold</strong> and <em>italic</em> text.</p>",
			want: []string{"## Title", "**bold**", "*italic*"},
		},
		{
			name: "lists",
			html: "<ul><li>first</li><li>second</li></ul>",
			want: []string{"- first", "- second"},
		},
		{
			name: "tables",
			html: "<table><tr><th>A</th><th>B</th></tr><tr><td>C</td><td>D</td></tr></table>",
			want: []string{"| A | B |", "| C | D |"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Convert(tt.html)
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("Convert output %q does not contain %q", got, want)
				}
			}
		})
	}
}

func TestConvert_EmptyBody(t *testing.T) {
	c := New()
	got, err := c.Convert("<html><body>   </body></html>")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got != "" {
		t.Errorf("Convert = %q, want empty string", got)
	}
}
