package main

import (
	"stemroom/cmd"
)

func main() {
	cmd.Execute()
}
