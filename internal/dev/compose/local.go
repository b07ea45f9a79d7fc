package compose

import (
	"fmt"
	"strings"

	"github.com/n9te9/goliteql/schema"
)

// Local is the default Composer used when no external composition binary
// is configured. It validates every subgraph SDL with the same
// goliteql/schema parser the teacher uses to build its own SubGraph
// representation (federation/graph/subgraph.go), then concatenates the
// subgraphs into one document.
//
// This is a dev-mode convenience, not a federation-aware merge: it does not
// resolve @key/@requires/@provides across subgraphs the way the real
// composition engine does. It exists so `supergraph dev` produces *a*
// schema end to end without requiring the external composer to be
// installed, matching the spirit of spec §4.E's "install-if-needed" — here,
// "if needed" is "never, for Local".
type Local struct{}

// Compose implements Composer.
func (Local) Compose(in Input) (string, error) {
	if len(in.Subgraphs) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# composed by supergraph-dev (local composer, federation %s)\n", in.FederationVersion)
	for _, sg := range in.Subgraphs {
		if _, err := schema.NewParser(schema.NewLexer()).Parse([]byte(sg.SDL)); err != nil {
			return "", fmt.Errorf("subgraph %q failed to parse: %w", sg.Key.Name, err)
		}
		fmt.Fprintf(&b, "\n# subgraph: %s (%s)\n%s\n", sg.Key.Name, sg.Key.RoutingURL, sg.SDL)
	}

	return b.String(), nil
}
