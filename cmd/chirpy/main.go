package main

import "github.com/aweris/chirpy/cmd/chirpy/cmd"

func main() {
	cmd.Execute()
}
