package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"conti/internal/api"
	"conti/internal/session"
)

var errNotAPIBackend = errors.New("login requires DATA_BACKEND=api")

type loginOptions struct {
	user     string
	password string
	logout   bool
}

func newLoginCommand() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain and store a session token for the api backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.logout && (opts.user == "" || opts.password == "") {
				return errors.New("--user and --password are required")
			}
			a, err := openApp(cmd.Context(), cmd.ErrOrStderr(), "")
			if err != nil {
				return err
			}
			defer a.Close()

			client, ok := a.backend.Ledger.(*api.Client)
			if !ok || a.backend.Session == nil {
				return errNotAPIBackend
			}
			if opts.logout {
				if err := a.backend.Session.Logout(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return err
			}
			return runLogin(cmd.Context(), cmd.OutOrStdout(), client, a.backend.Session, opts)
		},
	}

	cmd.Flags().StringVar(&opts.user, "user", "", "username or email")
	cmd.Flags().StringVar(&opts.password, "password", "", "password")
	cmd.Flags().BoolVar(&opts.logout, "logout", false, "forget the stored session instead")

	return cmd
}

func runLogin(ctx context.Context, out io.Writer, client *api.Client, sess *session.Session, opts loginOptions) error {
	if err := client.Login(ctx, opts.user, opts.password); err != nil {
		return err
	}
	user, _ := sess.User()
	name := user.Username
	if name == "" {
		name = user.Email
	}
	if name == "" {
		name = opts.user
	}
	_, err := fmt.Fprintf(out, "logged in as %s\n", name)
	return err
}
