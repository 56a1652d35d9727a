package main

import (
	"github.com/bonzoholda/shitbot-metrics-tracker/internal/cli"
)

func main() {
	cli.Execute()
}
