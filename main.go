package main

import "github.com/okabe-dev/repo-activity/cmd"

func main() {
	cmd.Execute()
}
