package router

import "strings"

type MakeRouteMatcherOptions struct {
	// Separator splits patterns and topics into segments. Defaults to "::".
	Separator string
	// OnlyFinalSegment restricts "#" to the last pattern segment.
	OnlyFinalSegment bool
}

// MakeRouteMatcher returns func(pattern, topic string) bool. "+" and "*"
// match exactly one segment, "#" matches zero or more. With the Mux, pattern
// is the subscription (eg. "wizard::#") and topic the message type
// (eg. "wizard::transition").
func MakeRouteMatcher(opts ...MakeRouteMatcherOptions) func(pattern, topic string) bool {
	separator := DefaultSeparator
	onlyFinal := false
	if len(opts) > 0 {
		if opts[0].Separator != "" {
			separator = opts[0].Separator
		}
		onlyFinal = opts[0].OnlyFinalSegment
	}

	return func(pattern, topic string) bool {
		if pattern == topic {
			return true
		}
		p := strings.Split(pattern, separator)
		t := strings.Split(topic, separator)
		if onlyFinal {
			for i, seg := range p {
				if seg == "#" && i != len(p)-1 {
					return false
				}
			}
		}
		return matchSegments(p, t)
	}
}

// matchSegments runs over topic segments keeping the set of pattern
// positions still alive.
func matchSegments(pattern, topic []string) bool {
	alive := make([]bool, len(pattern)+1)
	alive[0] = true
	expandHash(pattern, alive)

	for _, seg := range topic {
		next := make([]bool, len(pattern)+1)
		for i, ok := range alive {
			if !ok || i == len(pattern) {
				continue
			}
			switch pattern[i] {
			case "#":
				next[i] = true
			case "+", "*":
				next[i+1] = true
			default:
				if pattern[i] == seg {
					next[i+1] = true
				}
			}
		}
		expandHash(pattern, next)
		alive = next
	}
	return alive[len(pattern)]
}

// expandHash lets "#" match zero segments.
func expandHash(pattern []string, alive []bool) {
	for i := range pattern {
		if alive[i] && pattern[i] == "#" {
			alive[i+1] = true
		}
	}
}
