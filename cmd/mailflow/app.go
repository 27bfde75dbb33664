package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mhoang/mailflow/internal/credential"
	"github.com/mhoang/mailflow/internal/mail"
	"github.com/mhoang/mailflow/internal/mail/imapmail"
	"github.com/mhoang/mailflow/internal/mail/smtpmail"
	"github.com/mhoang/mailflow/internal/model"
	"github.com/mhoang/mailflow/internal/store"
)

// app carries the pieces shared by every command: config, logger, and
// constructors for the mail and storage collaborators. Collaborators
// are built on demand so commands that never touch the network or the
// database do not pay for them.
type app struct {
	cfgPath string
	cfg     *model.AppConfig
	account string
	log     zerolog.Logger
}

// selectedAccount resolves the -account flag against the config.
func (a *app) selectedAccount() (*model.AccountConfig, error) {
	acct, err := a.cfg.Account(a.account)
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// password fetches the account's password from the system keyring.
func (a *app) password(acct *model.AccountConfig) (string, error) {
	pw, err := credential.AccountPassword(acct.Name)
	if err != nil {
		return "", fmt.Errorf(
			"no stored password for account %q (run mailflow setup): %w",
			acct.Name, err,
		)
	}
	return pw, nil
}

// mailbox builds the IMAP mailbox for the selected account.
func (a *app) mailbox() (mail.Mailbox, *model.AccountConfig, error) {
	acct, err := a.selectedAccount()
	if err != nil {
		return nil, nil, err
	}
	pw, err := a.password(acct)
	if err != nil {
		return nil, nil, err
	}
	client := imapmail.New(
		acct.Name, acct.IMAPHost, acct.IMAPPort,
		acct.Username, pw, acct.TLS, a.log,
	)
	return client, acct, nil
}

// sender builds the SMTP sender for the selected account.
func (a *app) sender() (mail.Sender, *model.AccountConfig, error) {
	acct, err := a.selectedAccount()
	if err != nil {
		return nil, nil, err
	}
	pw, err := a.password(acct)
	if err != nil {
		return nil, nil, err
	}
	s := smtpmail.New(smtpmail.Config{
		Host:     acct.SMTPHost,
		Port:     acct.SMTPPort,
		Username: acct.Username,
		Password: pw,
		TLS:      acct.TLS,
	}, a.log)
	return s, acct, nil
}

// from builds the sender address for an account.
func (a *app) from(acct *model.AccountConfig) mail.Address {
	return mail.Address{Name: acct.FromName, Addr: acct.Username}
}

// openStore opens the metadata database. The caller closes it.
func (a *app) openStore() (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(a.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", a.cfg.DatabasePath, err)
	}
	return s, nil
}
