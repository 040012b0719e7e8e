package main

import "github.com/r0tifer/Centralized-Log-Viewer/internal/cmd"

func main() {
	cmd.Execute()
}
