// Command messenger operates the direct-messaging store: schema bootstrap,
// fixture seeding, one-shot reads and writes, and the ops server.
package main

import "github.com/tbourn/go-messenger-store/cmd/messenger/commands"

func main() {
	commands.Execute()
}
