package main

import "github.com/arloq/docchat/cmd"

func main() {
	cmd.Execute()
}
