// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markdown

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFilenameLength is the content-derived filename stem cap.
const DefaultFilenameLength = 15

var invalidFilenameChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
	"\n", "_", "\r", "_", "\t", "_",
)

// FilenameFromContent derives a filename stem from rendered Markdown: the
// first non-empty line with heading markers stripped, truncated to maxLen
// runes, with filesystem-hostile characters replaced. Empty content
// yields "untitled".
func FilenameFromContent(content string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultFilenameLength
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "untitled"
	}
	if strings.HasPrefix(content, "#") {
		content = strings.TrimSpace(strings.TrimLeft(content, "#"))
	}

	firstLine := ""
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}
	if firstLine == "" {
		return "untitled"
	}

	runes := []rune(firstLine)
	if len(runes) > maxLen {
		firstLine = string(runes[:maxLen])
	}

	name := strings.TrimSpace(invalidFilenameChars.Replace(firstLine))
	if name == "" {
		return "untitled"
	}
	return name
}

// UniqueName disambiguates filename collisions against existing .md files
// in dir with a numeric suffix: stem.md, stem_2.md, stem_3.md.
func UniqueName(dir, stem string) string {
	name := stem
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(dir, name+".md")); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s_%d", stem, i)
	}
}
