package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/mhoang/mailflow/internal/credential"
	"github.com/mhoang/mailflow/internal/mail/imapmail"
	"github.com/mhoang/mailflow/internal/model"
)

// runSetup collects a mail account interactively, stores the password
// in the system keyring, and writes the account into the config file.
func (a *app) runSetup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	skipValidate := fs.Bool("no-validate", false, "skip the IMAP connection check")
	remove := fs.String("remove", "", "remove this account and its stored password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *remove != "" {
		return a.removeAccount(*remove)
	}

	var (
		acct     model.AccountConfig
		password string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Account name").
				Description("A label for this account").
				Placeholder("work").
				Value(&acct.Name).
				Validate(validateRequired("Account name")),
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&acct.IMAPHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&acct.IMAPPort).
				Validate(validatePort),
			huh.NewInput().
				Title("SMTP Host").
				Placeholder("smtp.example.com").
				Value(&acct.SMTPHost).
				Validate(validateRequired("SMTP Host")),
			huh.NewInput().
				Title("SMTP Port").
				Placeholder("465").
				Value(&acct.SMTPPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Placeholder("user@example.com").
				Value(&acct.Username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Display name").
				Description("Shown as the sender on outgoing messages (optional)").
				Value(&acct.FromName),
			huh.NewInput().
				Title("Password").
				Description("Account password or app password").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(validateRequired("Password")),
			huh.NewConfirm().
				Title("Use implicit TLS").
				Description("Yes for implicit TLS, No for STARTTLS").
				Affirmative("Yes").
				Negative("No").
				Value(&acct.TLS),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("account form: %w", err)
	}

	if _, err := a.cfg.Account(acct.Name); err == nil {
		return fmt.Errorf("account %q already exists in %s", acct.Name, a.cfgPath)
	}

	if err := credential.SetAccountPassword(acct.Name, password); err != nil {
		return err
	}

	if !*skipValidate {
		client := imapmail.New(
			acct.Name, acct.IMAPHost, acct.IMAPPort,
			acct.Username, password, acct.TLS, a.log,
		)
		user, err := client.Validate(ctx)
		if err != nil {
			return err
		}
		a.log.Info().Str("user", user).Msg("IMAP connection verified")
	}

	a.cfg.Accounts = append(a.cfg.Accounts, acct)
	if err := model.SaveConfig(a.cfgPath, a.cfg); err != nil {
		return err
	}

	a.log.Info().
		Str("account", acct.Name).
		Str("config", a.cfgPath).
		Msg("account added")
	return nil
}

// removeAccount drops an account from the config and deletes its
// keyring entry.
func (a *app) removeAccount(name string) error {
	idx := -1
	for i := range a.cfg.Accounts {
		if a.cfg.Accounts[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("no account %q in config", name)
	}

	if err := credential.DeleteAccountPassword(name); err != nil {
		// The config entry is still removed; a stale keyring item is
		// harmless.
		a.log.Warn().Err(err).Msg("could not delete stored password")
	}

	a.cfg.Accounts = append(a.cfg.Accounts[:idx], a.cfg.Accounts[idx+1:]...)
	if err := model.SaveConfig(a.cfgPath, a.cfg); err != nil {
		return err
	}
	a.log.Info().Str("account", name).Msg("account removed")
	return nil
}

// validateRequired rejects empty input.
func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// validatePort accepts a numeric TCP port.
func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("enter a port between 1 and 65535")
	}
	return nil
}
