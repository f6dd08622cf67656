package main

import "github.com/theirongolddev/tripburn/cmd"

func main() {
	cmd.Execute()
}
