package main

import "github.com/MeKo-Tech/docnorm/cmd/docnorm/cmd"

func main() {
	cmd.Execute()
}
