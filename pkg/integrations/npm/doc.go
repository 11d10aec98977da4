// Package npm provides an HTTP client for the npm registry API.
//
// # Usage
//
//	client := npm.NewClient(c, 24*time.Hour)
//	pkg, err := client.FetchPackage(ctx, "express", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(pkg.Name, pkg.Version, pkg.Maintainers)
//
// # Version Selection
//
// The client reads the version tagged "latest" in dist-tags. Maintainers
// come from that version's manifest, falling back to the package-level
// list. Only "dependencies" are reported; dev, peer and optional
// dependencies are not part of the runtime graph.
package npm
