package check

import (
	"fmt"
	"regexp"
	"strings"
)

// EmptyMarkerBodies rewrites every forward declaration of the marker
// family ("void <prefix><id>(void);") into an empty-bodied definition
// ("void <prefix><id>(void){}"). All other lines pass through verbatim
// and line order is preserved. Already-rewritten definitions do not
// match the declaration form, so the transform is idempotent.
func EmptyMarkerBodies(code, prefix string) string {
	p := regexp.MustCompile(`^void ` + regexp.QuoteMeta(prefix) + `(.*)\(void\);`)
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if m := p.FindStringSubmatch(line); m != nil {
			out = append(out, fmt.Sprintf("void %s%s(void){}", prefix, m[1]))
		} else {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
