package main

import "github.com/goplus/uitest/cmd/uitest/internal"

func main() {
	internal.Execute()
}
