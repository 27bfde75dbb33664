package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	folderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	noSelectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// runFolders prints the account's folder tree, indented by hierarchy
// depth. Non-selectable folders are dimmed.
func (a *app) runFolders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("folders", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	mbox, acct, err := a.mailbox()
	if err != nil {
		return err
	}

	folders, err := mbox.Folders(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%d folders)\n", acct.Name, len(folders))
	for _, f := range folders {
		indent := strings.Repeat("  ", f.Depth())
		leaf := f.Name
		if p := f.Parent(); p != "" {
			leaf = strings.TrimPrefix(f.Name, p+f.Delim)
		}
		style := folderStyle
		if f.NoSelect {
			style = noSelectStyle
		}
		fmt.Fprintln(os.Stdout, indent+style.Render(leaf))
	}
	return nil
}
