package music

import (
	"regexp"
	"strings"
)

// Words that mark a parenthesized or bracketed qualifier as noise.
// "Song (Remastered 2011)" carries the same identity as "Song".
const noiseWords = `remaster|bonus|extended|anniversary|edit|deluxe|reissue|explicit|album version`

var noisePattern = regexp.MustCompile(
	`(?i)\([^)]*(?:` + noiseWords + `)[^)]*\)|\[[^\]]*(?:` + noiseWords + `)[^\]]*\]`,
)

// CleanTitle strips reissue/remaster style qualifiers from a track or album
// title. Bracketed groups whose interior does not contain a noise word are
// left alone, so "(Don't Fear) The Reaper" survives intact. The function is
// idempotent.
func CleanTitle(title string) string {
	return strings.TrimSpace(noisePattern.ReplaceAllString(title, ""))
}
