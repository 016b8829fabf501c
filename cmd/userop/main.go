package main

import "github.com/vietddude/userop/internal/cli"

func main() {
	cli.Execute()
}
