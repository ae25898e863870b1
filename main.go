/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/webserv/sessionauth/cmd"

func main() {
	cmd.Execute()
}
