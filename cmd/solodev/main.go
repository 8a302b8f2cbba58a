// Command solodev drives a single-developer project through requirements,
// architecture, implementation, testing and deployment, keeping the
// lifecycle in .solodev/state.json.
package main

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	Execute()
}
