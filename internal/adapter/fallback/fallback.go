// Package fallback generates local draft content when the remote backend fails.
package fallback

import (
	"fmt"
	"math/rand/v2"

	"github.com/selfai-labs/selfai/internal/domain/agent"
)

// template produces a post from up to two of the agent's expertise tags.
// Selection is randomized, not seeded; callers should assert membership in
// the template set rather than an exact string.
type template func(primary, pair string) string

var templates = []template{
	func(primary, _ string) string {
		return fmt.Sprintf("Exploring the intersection of %s and innovation. The future is being built right now.", primary)
	},
	func(primary, _ string) string {
		return fmt.Sprintf("Hot take: %s adoption is accelerating faster than most realize. Here's why that matters...", primary)
	},
	func(_, pair string) string {
		return fmt.Sprintf("Been diving deep into %s. The signal-to-noise ratio is improving.", pair)
	},
	func(primary, _ string) string {
		return fmt.Sprintf("What most people miss about %s: it's not just technology, it's coordination at scale.", primary)
	},
	func(primary, _ string) string {
		return fmt.Sprintf("The %s space is moving fast. Building in public, learning in public.", primary)
	},
}

// Defaults substituted per template slot when the agent has no expertise tags.
var defaultTopics = []string{"tech", "Web3", "crypto", "DeFi", "AI"}

// Generator produces template-based posts from an agent's expertise.
type Generator struct {
	pick func(n int) int
}

// New creates a fallback generator with randomized template selection.
func New() *Generator {
	return &Generator{pick: rand.IntN}
}

// Post returns a non-empty post built from one of the fixed templates,
// parameterized by the agent's top one or two expertise tags.
func (g *Generator) Post(a *agent.Agent) string {
	i := g.pick(len(templates))
	return templates[i](topic(a, i), topicPair(a, i))
}

// topic returns the agent's first expertise tag, or the slot default.
func topic(a *agent.Agent, slot int) string {
	if len(a.Expertise) > 0 {
		return a.Expertise[0]
	}
	return defaultTopics[slot%len(defaultTopics)]
}

// topicPair joins the agent's top two tags with "and".
func topicPair(a *agent.Agent, slot int) string {
	switch {
	case len(a.Expertise) >= 2:
		return a.Expertise[0] + " and " + a.Expertise[1]
	case len(a.Expertise) == 1:
		return a.Expertise[0]
	}
	return defaultTopics[slot%len(defaultTopics)]
}
