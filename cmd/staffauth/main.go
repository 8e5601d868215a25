// Command staffauth signs staff into the SKV Rent console from a terminal.
//
//	staffauth [-config file] login -email you@example.com
//	staffauth whoami
//	staffauth activate -email new@example.com
//	staffauth set-password -email new@example.com -otp 1234
//	staffauth perms [-role MODERATOR]
//	staffauth logout
//
// The session is kept in a JSON file (session.file, default
// .staffauth/session.json).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	os.Exit(c.run(ctx, os.Args[1:]))
}
