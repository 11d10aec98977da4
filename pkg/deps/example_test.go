package deps_test

import (
	"fmt"

	"github.com/nodemedic/nodemedic/pkg/deps"
)

func ExampleOptions_WithDefaults() {
	opts := deps.Options{MaxNodes: 50}.WithDefaults()

	fmt.Println("MaxDepth:", opts.MaxDepth)
	fmt.Println("MaxNodes:", opts.MaxNodes)
	fmt.Println("CacheTTL:", opts.CacheTTL)
	// Output:
	// MaxDepth: 2
	// MaxNodes: 50
	// CacheTTL: 24h0m0s
}

func ExampleFromTree() {
	g, _ := deps.FromTree([]byte(`{"name":"app","dependencies":{"react":{"dependencies":{"loose-envify":{}}}}}`))
	for _, e := range g.Edges() {
		fmt.Println(e.Source, "->", e.Target)
	}
	// Output:
	// app -> react
	// react -> loose-envify
}
