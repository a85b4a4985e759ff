// Package grouping derives the logical backup group of a file.
package grouping

import (
	"path"
	"regexp"
	"time"
)

// TimestampLayout is the layout of the timestamp embedded in backup file names
const TimestampLayout = "2006-01-02_15-04"

// namePattern matches <name>_<YYYY>-<MM>-<DD>_<HH>-<MM>.<ext>
var namePattern = regexp.MustCompile(`^(.*)_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2})\.(.+)$`)

// Grouper returns the group a backup file belongs to
type Grouper interface {
	Group(key string) string
}

// FilenameGrouper groups files by the name in front of their timestamp
// suffix, falling back to the name of the directory holding the file.
type FilenameGrouper struct {
	// Root names the group of top-level files that do not follow the convention
	Root string
}

// Group returns the group name for a slash separated key
func (g FilenameGrouper) Group(key string) string {
	if m := namePattern.FindStringSubmatch(path.Base(key)); m != nil && m[1] != "" {
		return m[1]
	}

	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return g.Root
	}
	return path.Base(dir)
}

// ParseTimestamp extracts the timestamp from a file following the naming
// convention. The time is interpreted in loc.
func ParseTimestamp(key string, loc *time.Location) (time.Time, bool) {
	m := namePattern.FindStringSubmatch(path.Base(key))
	if m == nil {
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(TimestampLayout, m[2], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
