package main

import "chunk-mender/cmd"

func main() {
	cmd.Execute()
}
