// Command server is Tomato's single binary: the HTTP query gateway
// ("serve"), the one-shot federation import pass ("import"), and the
// admin-bootstrap CLI surface named in spec §6.4, following the
// teacher's cmd/server/cmd cobra layout.
package main

import "github.com/bmlt-enabled/tomato/cmd/server/cmd"

func main() {
	cmd.Execute()
}
