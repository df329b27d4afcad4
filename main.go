package main

import "github.com/theirongolddev/bopt/cmd"

func main() {
	cmd.Execute()
}
