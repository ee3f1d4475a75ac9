package main

import "github.com/voxdroplab/voxdrop/cmd"

func main() {
	cmd.Execute()
}
