package main

import "github.com/zhaobenny/cchistory/internal/cli"

func main() {
	cli.Execute()
}
