package agent

import (
	"regexp"
	"strings"
)

var (
	sourceRefRe = regexp.MustCompile(`\[S(\d+)\]`)
	// "- пункт", "* пункт", "• пункт", "1. пункт"
	listItemRe = regexp.MustCompile(`^(?:[-•*]|\d+[.)])\s+(.+)$`)
)

// parseInsights - пункты списка под заголовком "Key insights", в любом markdown-оформлении
func parseInsights(content string) []string {
	var (
		insights []string
		inside   bool
	)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !inside {
			inside = isInsightsHeading(line)
			continue
		}
		if line == "" {
			if len(insights) > 0 {
				break
			}
			continue
		}
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			break
		}
		if item := strings.Trim(strings.TrimSpace(m[1]), "*"); item != "" {
			insights = append(insights, item)
		}
	}
	return insights
}

func isInsightsHeading(line string) bool {
	h := strings.ToLower(strings.Trim(line, "#*: \t"))
	return h == "key insights"
}

// parseSourceRefs - маркеры [Sn] в порядке первого упоминания
func parseSourceRefs(content string) []string {
	var refs []string
	seen := make(map[string]struct{})
	for _, ref := range sourceRefRe.FindAllString(content, -1) {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}
