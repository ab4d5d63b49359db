package main

import "stefabooks/cmd/client/cmd"

func main() {
	cmd.Execute()
}
