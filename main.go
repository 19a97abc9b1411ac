package main

import "github.com/RichardoC/padi-bot/internal/cli"

func main() {
	cli.Execute()
}
