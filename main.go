package main

import "github.com/maimood/mood-coach/cmd"

func main() {
	cmd.Execute()
}
