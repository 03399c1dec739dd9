package cli

// Set at build time with -ldflags "-X github.com/vx-labs/maelstrom-node/cli.version=...".
var version = "snapshot"

func Version() string {
	return version
}
