// Command ddlgrator checks, renders and applies schema migrations.
package main

import "github.com/bcomnes/ddlgrator/cmd/ddlgrator/command"

func main() {
	command.Execute()
}
