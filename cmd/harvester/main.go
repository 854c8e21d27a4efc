package main

import "bookharvest/internal/cli"

func main() {
	cli.Execute()
}
