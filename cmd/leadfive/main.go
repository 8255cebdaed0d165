package main

import "github.com/leadfive-network/leadfive/internal/cli"

func main() {
	cli.Execute()
}
