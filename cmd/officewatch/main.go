// officewatch is a small office-presence bot: it scans the local network
// for known device MAC addresses, maps them to registered users, and
// reports who is in the office over HTTP and Slack.
package main

import (
	"github.com/officewatch/officewatch/cmd/cli"
)

func main() {
	cli.Execute()
}
