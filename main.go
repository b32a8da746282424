/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/jsonmapper/integration-mapper/cmd"

func main() {
	cmd.Execute()
}
