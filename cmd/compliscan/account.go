package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jdziat/compliscan"
	"github.com/jdziat/compliscan/pkg/config"
)

var errNeedsAPI = errors.New("this command needs COMPLISCAN_API_URL; run `compliscan mock-server` for a local API")

func httpClient(e *env) (*compliscan.Client, error) {
	if e.cfg.UseMock() {
		return nil, errNeedsAPI
	}
	svc, err := e.service()
	if err != nil {
		return nil, err
	}
	return svc.(*compliscan.Client), nil
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password; read from stdin when omitted")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	c, err := httpClient(e)
	if err != nil {
		return err
	}
	if *password == "" {
		line, err := bufio.NewReader(e.in).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("%w: no password given", compliscan.ErrInvalidArgument)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	resp, err := c.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	if err := config.SaveToken(e.cfg.TokenFile, resp.Token); err != nil {
		return err
	}
	name := *username
	if resp.User != nil && resp.User.Username != "" {
		name = resp.User.Username
	}
	e.logger.Info("logged in", "username", name, "token_file", e.cfg.TokenFile)
	fmt.Fprintf(e.out, "Logged in as %s\n", name)
	return nil
}

func cmdLogout(_ context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlagSet(e, "logout"), args); err != nil {
		return err
	}
	if err := config.ClearToken(e.cfg.TokenFile); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Logged out")
	return nil
}

func cmdWhoami(_ context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlagSet(e, "whoami"), args); err != nil {
		return err
	}
	token, err := e.cfg.ResolveToken()
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("not logged in")
	}
	info, err := compliscan.ParseTokenInfo(token)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "Subject:  %s\n", dash(info.Subject))
	fmt.Fprintf(e.out, "Username: %s\n", dash(info.Username))
	if info.Name != "" {
		fmt.Fprintf(e.out, "Name:     %s\n", info.Name)
	}
	if info.Email != "" {
		fmt.Fprintf(e.out, "Email:    %s\n", info.Email)
	}
	if len(info.Roles) > 0 {
		fmt.Fprintf(e.out, "Roles:    %s\n", strings.Join(info.Roles, ", "))
	}
	if !info.ExpiresAt.IsZero() {
		status := ""
		if info.Expired(time.Now()) {
			status = " (expired)"
		}
		fmt.Fprintf(e.out, "Expires:  %s%s\n", info.ExpiresAt.Local().Format(time.RFC1123), status)
	}
	return nil
}

func cmdHealth(ctx context.Context, e *env, args []string) error {
	if _, err := parseArgs(newFlagSet(e, "health"), args); err != nil {
		return err
	}
	if e.cfg.UseMock() {
		fmt.Fprintln(e.out, "ok (mock)")
		return nil
	}
	c, err := httpClient(e)
	if err != nil {
		return err
	}
	status, err := c.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, status)
	return nil
}

func cmdSearch(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "search")
	country := fs.String("country", "", "only match entities from this country")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(strings.Join(pos, " "))
	if name == "" {
		return fmt.Errorf("%w: search needs a name", compliscan.ErrInvalidArgument)
	}
	svc, err := e.service()
	if err != nil {
		return err
	}
	resp, err := svc.Search(ctx, compliscan.SearchQuery{Name: name, Country: *country})
	if err != nil {
		return err
	}
	printMatches(e.out, resp.Matches)
	return nil
}
