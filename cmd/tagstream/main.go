package main

import "github.com/cotyar/tagstream/cmd"

func main() {
	cmd.Execute()
}
