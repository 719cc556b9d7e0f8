package main

import "github.com/efs-sdk/accessmanager/cmd"

func main() {
	cmd.Execute()
}
