package pascal

import (
	"regexp"
	"strings"
)

// Glob returns the files whose names match a filer-style pattern, where *
// matches any run of characters and ? a single one.
func (p *Pascal) Glob(pattern string) ([]*FileEntry, error) {

	if err := p.checkPrepared(); err != nil {
		return nil, err
	}

	pattern = regexp.QuoteMeta(pattern)
	pattern = strings.Replace(pattern, `\*`, ".*", -1)
	pattern = strings.Replace(pattern, `\?`, ".", -1)

	rx, err := regexp.Compile("(?i)^" + pattern + "$")
	if err != nil {
		return nil, err
	}

	files := make([]*FileEntry, 0)
	for _, e := range p.catalog {
		if rx.MatchString(e.raw.GetName()) {
			files = append(files, e)
		}
	}
	return files, nil
}
