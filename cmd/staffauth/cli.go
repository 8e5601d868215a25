package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/skvrent/staffauth"
	"github.com/skvrent/staffauth/internal/config"
	"github.com/skvrent/staffauth/session"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	reader *bufio.Reader
}

type command struct {
	name  string
	usage string
	run   func(c *cli, ctx context.Context, env *env, args []string) error
}

var commands = []command{
	{"login", "sign in with email and password", (*cli).login},
	{"whoami", "show the signed-in user", (*cli).whoami},
	{"logout", "sign out", (*cli).logout},
	{"activate", "request a first-login code", (*cli).activate},
	{"set-password", "enter the code and choose a password", (*cli).setPassword},
	{"perms", "list role capabilities", (*cli).perms},
}

// env is what every command works with.
type env struct {
	engine *staffauth.Engine
	locale string
	mobile bool
}

func (e *env) ctx(ctx context.Context) context.Context {
	ctx = staffauth.WithLocale(ctx, e.locale)
	return staffauth.WithMobile(ctx, e.mobile)
}

func (c *cli) run(ctx context.Context, args []string) int {
	global := flag.NewFlagSet("staffauth", flag.ContinueOnError)
	global.SetOutput(c.stderr)
	configPath := global.String("config", "", "YAML config file")
	envFile := global.String("env-file", ".env", "dotenv file, ignored when missing")
	locale := global.String("locale", staffauth.DefaultLocale, "route locale (en, ar)")
	mobile := global.Bool("mobile", false, "use the mobile backend and routes")
	global.Usage = func() {
		fmt.Fprintln(c.stderr, "usage: staffauth [flags] <command> [command flags]")
		global.PrintDefaults()
		fmt.Fprintln(c.stderr, "\ncommands:")
		for _, cmd := range commands {
			fmt.Fprintf(c.stderr, "  %-13s %s\n", cmd.name, cmd.usage)
		}
	}
	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitUsage
	}

	name := global.Arg(0)
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(c.stderr, "unknown command %q\n", name)
		global.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(c.stderr, "config: %v\n", err)
		return exitError
	}
	engine, err := staffauth.New().
		WithConfig(cfg.Engine).
		WithSessionStore(session.NewFileStore(cfg.SessionFile)).
		WithLogger(cfg.Log.NewLogger(c.stderr)).
		Build()
	if err != nil {
		fmt.Fprintf(c.stderr, "engine: %v\n", err)
		return exitError
	}
	defer engine.Close()

	e := &env{engine: engine, locale: *locale, mobile: *mobile}
	if err := cmd.run(c, ctx, e, global.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitUsage
		}
		fmt.Fprintf(c.stderr, "%s: %s\n", name, staffauth.UserMessage(err, err.Error()))
		return exitError
	}
	return exitOK
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) login(ctx context.Context, e *env, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "staff email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		if *email, _ = c.prompt("Email: "); *email == "" {
			return staffauth.ErrEmailRequired
		}
	}
	password, err := c.secret("Password: ")
	if err != nil {
		return err
	}

	res, err := e.engine.Login(e.ctx(ctx), *email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "signed in as %s (%s)\n", displayName(res.Session), res.Role)
	fmt.Fprintf(c.stdout, "dashboard: %s\n", res.RedirectTo)
	return nil
}

func (c *cli) whoami(ctx context.Context, e *env, _ []string) error {
	sess, err := e.engine.Current(e.ctx(ctx))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s <%s>\n", displayName(sess), sess.User.Email)
	fmt.Fprintf(c.stdout, "role: %s\n", sess.Role)
	if sess.ExpiresAt > 0 {
		fmt.Fprintf(c.stdout, "expires: %s\n", time.Unix(sess.ExpiresAt, 0).Local().Format(time.RFC1123))
	}
	return nil
}

func (c *cli) logout(ctx context.Context, e *env, _ []string) error {
	if err := e.engine.Logout(e.ctx(ctx)); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "signed out")
	return nil
}

func (c *cli) activate(ctx context.Context, e *env, args []string) error {
	fs := c.flags("activate")
	email := fs.String("email", "", "email registered by an administrator")
	if err := fs.Parse(args); err != nil {
		return err
	}
	next, err := e.engine.RequestActivation(e.ctx(ctx), *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "code sent to %s\n", *email)
	fmt.Fprintf(c.stdout, "continue with: staffauth set-password -email %s (web: %s)\n", *email, next)
	return nil
}

func (c *cli) setPassword(ctx context.Context, e *env, args []string) error {
	fs := c.flags("set-password")
	email := fs.String("email", "", "email being activated")
	otp := fs.String("otp", "", "4-digit code from the email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx = e.ctx(ctx)

	act, err := e.engine.StartActivation(ctx, *email)
	if err != nil {
		return err
	}
	code := *otp
	if code == "" {
		if code, err = c.prompt("Code: "); err != nil {
			return err
		}
	}
	act.PasteCode(code)
	if err := act.SubmitOTP(ctx); err != nil {
		return err
	}

	password, err := c.secret("New password: ")
	if err != nil {
		return err
	}
	confirm, err := c.secret("Confirm password: ")
	if err != nil {
		return err
	}
	if err := act.SubmitPassword(ctx, password, confirm); err != nil {
		return err
	}

	fmt.Fprintln(c.stdout, "account activated")
	if sess := act.Session(); sess != nil {
		fmt.Fprintf(c.stdout, "signed in as %s (%s)\n", displayName(sess), sess.Role)
		return nil
	}
	fmt.Fprintf(c.stdout, "sign in at %s\n", act.RedirectTo())
	return nil
}

func (c *cli) perms(ctx context.Context, e *env, args []string) error {
	fs := c.flags("perms")
	roleName := fs.String("role", "", "role to list; defaults to the signed-in role")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var role staffauth.Role
	if *roleName != "" {
		r, err := staffauth.ParseRole(*roleName)
		if err != nil {
			return err
		}
		role = r
	} else {
		sess, err := e.engine.Current(e.ctx(ctx))
		if err != nil {
			return err
		}
		role = sess.Role
	}
	for _, p := range e.engine.Permissions(role) {
		fmt.Fprintln(c.stdout, p)
	}
	return nil
}

// prompt reads one line from stdin.
func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.stderr, label)
	if c.reader == nil {
		c.reader = bufio.NewReader(c.stdin)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// secret reads without echo when stdin is a terminal.
func (c *cli) secret(label string) (string, error) {
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.stderr, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.stderr)
		return string(b), err
	}
	return c.prompt(label)
}

func displayName(s *staffauth.Session) string {
	if s.User.Name != "" {
		return s.User.Name
	}
	return s.User.Email
}
