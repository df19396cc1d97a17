// Package version reports the build metadata of the demandflow binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/demandflow/version.Version=1.4.0 \
//	    -X github.com/kbukum/demandflow/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Unset values fall back to the VCS stamp Go embeds in module builds.
package version
