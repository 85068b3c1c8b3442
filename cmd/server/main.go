package main

import "riteswipe-api/internal/cli"

func main() {
	cli.Execute()
}
