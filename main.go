package main

import "github.com/treefix50/reelshelf/internal/cli"

func main() {
	cli.Execute()
}
