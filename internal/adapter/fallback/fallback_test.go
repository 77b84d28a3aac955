package fallback

import (
	"strings"
	"testing"

	"github.com/selfai-labs/selfai/internal/domain/agent"
)

func TestPostAlwaysNonEmpty(t *testing.T) {
	g := New()
	a := &agent.Agent{Name: "Bot", Expertise: []string{"DeFi"}}
	for range 100 {
		if g.Post(a) == "" {
			t.Fatal("expected non-empty post")
		}
	}
}

func TestPostMentionsPrimaryExpertise(t *testing.T) {
	g := New()
	a := &agent.Agent{Name: "Bot", Expertise: []string{"DeFi", "NFTs"}}
	for range 100 {
		post := g.Post(a)
		if !strings.Contains(post, "DeFi") {
			t.Fatalf("expected post to mention DeFi, got %q", post)
		}
	}
}

func TestPostCoversEveryTemplate(t *testing.T) {
	a := &agent.Agent{Name: "Bot", Expertise: []string{"DeFi", "NFTs"}}
	for i := range templates {
		g := &Generator{pick: func(int) int { return i }}
		post := g.Post(a)
		if post == "" {
			t.Fatalf("template %d produced empty post", i)
		}
		if !strings.Contains(post, "DeFi") {
			t.Fatalf("template %d does not mention the primary tag: %q", i, post)
		}
	}
}

func TestPostNoExpertiseUsesDefaults(t *testing.T) {
	a := &agent.Agent{Name: "Bot"}
	for i := range templates {
		g := &Generator{pick: func(int) int { return i }}
		post := g.Post(a)
		if post == "" {
			t.Fatalf("template %d produced empty post without expertise", i)
		}
	}
}

func TestPostPairJoinsTopTwoTags(t *testing.T) {
	a := &agent.Agent{Name: "Bot", Expertise: []string{"crypto", "governance", "memes"}}
	g := &Generator{pick: func(int) int { return 2 }} // the pair template
	post := g.Post(a)
	if !strings.Contains(post, "crypto and governance") {
		t.Fatalf("expected top two tags joined, got %q", post)
	}
}
