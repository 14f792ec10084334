package main

import "image-metadata-app/cmd"

func main() {
	cmd.Execute()
}
