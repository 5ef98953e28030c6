package main

import "github.com/mchmarny/gradepulse/pkg/cli"

func main() {
	cli.Execute()
}
