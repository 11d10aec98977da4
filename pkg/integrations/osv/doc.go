// Package osv queries the OSV vulnerability database (https://osv.dev) for
// advisories affecting npm packages.
//
//	client := osv.NewClient(c, 6*time.Hour)
//	vulns, err := client.Query(ctx, "lodash", "4.17.20", false)
//
// An empty version asks for advisories affecting any version.
package osv
