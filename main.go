/*
Copyright © 2025 kantxie
*/
package main

import "github.com/kantxie-coder/cryptosage/cmd"

func main() {
	cmd.Execute()
}
