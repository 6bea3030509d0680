// Package schedule parses the natural-language time expressions accepted by
// `calljmp deploy --at`, such as "tomorrow at 9am" or "in 2 hours".
package schedule

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// At resolves expr relative to now into an absolute time. Returns an error
// if no rule in the English/common rule sets matches.
func At(expr string, now time.Time) (time.Time, error) {
	result, err := parser.Parse(expr, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing schedule expression %q: %w", expr, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("could not understand schedule expression %q", expr)
	}
	return result.Time, nil
}
