package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
	"github.com/learnhub/learnhub/src/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Sign in with a password or a Google account",
	Long: `Sign in and keep the session for later commands.

The password is read from --password, then LEARNHUB_PASSWORD, then stdin.
With --google a browser sign-in is started and completed on a loopback port.

Examples:
  learnhub login student
  learnhub login --google`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := learner.Accounts.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long: `Show the signed-in user.

--offline prints what is stored locally without asking the backend.`,
	RunE: runWhoami,
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create a learner or lecturer account",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your profile",
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update profile fields",
	Long: `Update profile fields. Only the flags given are sent.

Examples:
  learnhub profile update --first-name Ada --email ada@example.edu`,
	RunE: runProfileUpdate,
}

func init() {
	loginCmd.Flags().StringP("password", "p", "", "account password")
	loginCmd.Flags().Bool("google", false, "sign in with the configured OpenID Connect provider")
	loginCmd.Flags().Duration("wait", 5*time.Minute, "how long to wait for the browser sign-in")

	whoamiCmd.Flags().Bool("offline", false, "read the stored session only")

	registerCmd.Flags().String("role", "student", "account role (student or teacher)")
	registerCmd.Flags().String("email", "", "email address")
	registerCmd.Flags().StringP("password", "p", "", "account password")
	registerCmd.Flags().String("first-name", "", "first name")
	registerCmd.Flags().String("last-name", "", "last name")

	profileUpdateCmd.Flags().String("first-name", "", "first name")
	profileUpdateCmd.Flags().String("last-name", "", "last name")
	profileUpdateCmd.Flags().String("email", "", "email address")
	profileUpdateCmd.Flags().String("avatar", "", "avatar URL")
	profileCmd.AddCommand(profileUpdateCmd)

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd, profileCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if google, _ := cmd.Flags().GetBool("google"); google {
		wait, _ := cmd.Flags().GetDuration("wait")
		return loginWithGoogle(cmd.Context(), wait)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: username is required", apierr.ErrValidation)
	}
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	user, err := learner.Accounts.PasswordLogin(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", user.DisplayName())
	return nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	if p := os.Getenv("LEARNHUB_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// loginWithGoogle runs the authorization-code flow with a redirect to a
// one-shot listener on 127.0.0.1.
func loginWithGoogle(ctx context.Context, wait time.Duration) error {
	if learner.Federated == nil {
		return errors.New("federated sign-in is not configured (set OIDC_PROVIDER and OIDC_CLIENT_ID)")
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("open callback listener: %w", err)
	}
	redirect := fmt.Sprintf("http://%s/callback", ln.Addr())
	authURL, _ := learner.Federated.AuthCodeURL(redirect)

	done := make(chan result, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/callback" {
				http.NotFound(w, r)
				return
			}
			q := r.URL.Query()
			if e := q.Get("error"); e != "" {
				http.Error(w, "Sign-in failed: "+e, http.StatusBadRequest)
				deliver(done, result{err: fmt.Errorf("provider returned %s", e)})
				return
			}
			user, err := learner.Federated.Complete(r.Context(), q.Get("state"), q.Get("code"))
			if err != nil {
				http.Error(w, "Sign-in failed: "+err.Error(), http.StatusBadRequest)
			} else {
				fmt.Fprintln(w, "Signed in. You can close this window.")
			}
			deliver(done, result{user: user, err: err})
		}),
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	fmt.Println("Open this URL in a browser to sign in:")
	fmt.Println()
	fmt.Println("  " + authURL)
	fmt.Println()

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	select {
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		fmt.Printf("Signed in as %s\n", res.user.DisplayName())
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for browser sign-in: %w", ctx.Err())
	}
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var (
		user  *domain.UserProfile
		token string
	)
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		stored, err := session.PersistedUser(ctx, learner.Storage)
		if err != nil {
			fmt.Println("Not signed in")
			return nil
		}
		user = stored
		token, _ = learner.Storage.Get(ctx, session.TokenKey)
	} else {
		state := learner.Session.State()
		if state.User == nil {
			fmt.Println("Not signed in")
			return nil
		}
		user = state.User
		token, _ = learner.Session.Token()
	}

	if jsonOut {
		return printJSON(user)
	}
	fmt.Printf("ID:       %d\n", user.ID)
	fmt.Printf("Name:     %s\n", user.DisplayName())
	fmt.Printf("Username: %s\n", user.Username)
	if user.Email != "" {
		fmt.Printf("Email:    %s\n", user.Email)
	}
	fmt.Printf("Role:     %s\n", user.Role)
	if exp, ok := session.TokenExpiry(token); ok {
		fmt.Printf("Token:    expires %s\n", exp.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	role, _ := cmd.Flags().GetString("role")
	email, _ := cmd.Flags().GetString("email")
	first, _ := cmd.Flags().GetString("first-name")
	last, _ := cmd.Flags().GetString("last-name")
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	reg := domain.Registration{
		Role:      strings.ToLower(role),
		Username:  args[0],
		Password:  password,
		Email:     email,
		FirstName: first,
		LastName:  last,
	}
	if err := learner.Backend.Register(cmd.Context(), reg); err != nil {
		return err
	}
	fmt.Printf("Account %s created. Sign in with `learnhub login %s`.\n", reg.Username, reg.Username)
	return nil
}

func runProfileUpdate(cmd *cobra.Command, args []string) error {
	var update domain.ProfileUpdate
	update.FirstName, _ = cmd.Flags().GetString("first-name")
	update.LastName, _ = cmd.Flags().GetString("last-name")
	update.Email, _ = cmd.Flags().GetString("email")
	update.Avatar, _ = cmd.Flags().GetString("avatar")
	if update == (domain.ProfileUpdate{}) {
		return fmt.Errorf("%w: nothing to update", apierr.ErrValidation)
	}
	user, err := learner.Accounts.UpdateProfile(cmd.Context(), update)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(user)
	}
	fmt.Printf("Profile updated for %s\n", user.DisplayName())
	return nil
}

type result struct {
	user *domain.UserProfile
	err  error
}

// deliver keeps only the first callback outcome.
func deliver(ch chan result, r result) {
	select {
	case ch <- r:
	default:
	}
}
