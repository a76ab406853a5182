package commands

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

// openURL opens a URL in the default browser.
var openURL = browser.OpenURL

// NewEditorCommand creates the editor command group.
func NewEditorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editor",
		Short: "Work with the Empower editor",
	}

	cmd.AddCommand(newEditorOpenCommand())

	return cmd
}

func newEditorOpenCommand() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "open DOCUMENT_ID",
		Short: "Open an Empower document in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(commandContext(cmd), needEmpower)
			if err != nil {
				return err
			}

			url := client.Editor().OpenDocumentURL(args[0])
			if printOnly {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), url)

				return nil
			}

			return openInBrowser(cmd.ErrOrStderr(), url)
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "print the URL instead of opening it")

	return cmd
}

// NewDesignCommand creates the design command group.
func NewDesignCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design",
		Short: "Work with the design front end",
	}

	cmd.AddCommand(newDesignOpenCommand())

	return cmd
}

func newDesignOpenCommand() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open the design front end in the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(commandContext(cmd), needDesign)
			if err != nil {
				return err
			}

			url := client.Resources().FrontEndURL()
			if printOnly {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), url)

				return nil
			}

			return openInBrowser(cmd.ErrOrStderr(), url)
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "print the URL instead of opening it")

	return cmd
}

func openInBrowser(stderr io.Writer, url string) error {
	_, _ = fmt.Fprintf(stderr, "Opening %s\n", url)

	err := openURL(url)
	if err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
