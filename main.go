package main

import "github.com/KaramelBytes/ainsight/cmd"

func main() {
	cmd.Execute()
}
