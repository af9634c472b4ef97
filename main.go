// Command cstats reports Claude Code usage statistics from local session logs.
package main

import "github.com/theirongolddev/cstats/cmd"

func main() {
	cmd.Execute()
}
