// ytsum fetches YouTube transcripts and summarizes them from the command line.
package main

import "github.com/anatolykoptev/go_ytsum/internal/cli"

func main() {
	cli.Main()
}
