package generator

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// slugSpace is the whitespace a JavaScript \s matches, so slugs agree with the
// ones the blog already has: ASCII whitespace, \v, Unicode separators and BOM.
const slugSpace = `\s\v\p{Z}\x{FEFF}`

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9` + slugSpace + `-]`)
	slugSpaces     = regexp.MustCompile(`[` + slugSpace + `]+`)
	slugDashes     = regexp.MustCompile(`-+`)
)

// DeriveSlug turns a title into a URL-safe slug suffixed with the unix
// timestamp of ts, e.g. "GPT-5 and the Future!!" -> "gpt-5-and-the-future-1735689600".
// A title with nothing usable left yields "-<timestamp>".
func DeriveSlug(title string, ts time.Time) string {
	part := strings.ToLower(strings.TrimSpace(title))
	part = slugDisallowed.ReplaceAllString(part, "")
	part = slugSpaces.ReplaceAllString(part, "-")
	part = slugDashes.ReplaceAllString(part, "-")
	part = strings.Trim(part, "-")

	return part + "-" + strconv.FormatInt(ts.Unix(), 10)
}
