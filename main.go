package main

import "sonata/cmd"

func main() {
	cmd.Execute()
}
