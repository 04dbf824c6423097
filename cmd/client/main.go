package main

import "chronicles/cmd/client/cmd"

func main() {
	cmd.Execute()
}
