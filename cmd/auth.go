package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/humanitybadge/cli/pkg/deviceflow"
	"github.com/humanitybadge/cli/pkg/gist"
	"github.com/humanitybadge/cli/pkg/share"
	"github.com/humanitybadge/cli/pkg/util"
	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// AuthService is the credential surface used by the auth commands.
type AuthService interface {
	AuthStatus(ctx context.Context) (deviceflow.AuthStatus, error)
	StartDeviceFlow(ctx context.Context) (*deviceflow.Session, error)
	Poller() deviceflow.Poller
	CancelDeviceFlow(ctx context.Context) error
	Logout(ctx context.Context, all bool) error
	SetManualToken(ctx context.Context, token string) (gist.TokenCheck, error)
	ClearManualToken(ctx context.Context) error
	PromptState(ctx context.Context) (share.PromptState, error)
	DismissPrompt(ctx context.Context) error
	SkipPrompt(ctx context.Context) error
}

// AuthCmd handles GitHub credential operations.
type AuthCmd struct {
	svc     AuthService
	openURL func(url string) error
	after   func(time.Duration) <-chan time.Time
}

var codeBox = lipgloss.NewStyle().
	Bold(true).
	Border(lipgloss.DoubleBorder()).
	BorderForeground(lipgloss.Color("#2463EB")).
	Padding(0, 2)

// LoginInput holds input for the device-flow login.
type LoginInput struct {
	NoBrowser bool
	Timeout   time.Duration
}

// Login runs the device flow until the user authorizes, denies, or the code
// expires. A timeout or interrupt cancels the pending session.
func (c AuthCmd) Login(ctx context.Context, in LoginInput) error {
	if in.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.Timeout)
		defer cancel()
	}

	sess, err := c.svc.StartDeviceFlow(ctx)
	if errors.Is(err, deviceflow.ErrNotConfigured) {
		pterm.Warning.Println("Device login is unavailable. Create a personal access token with the gist scope and run: badge auth token set <token>")
		return err
	}
	if err != nil {
		return err
	}

	pterm.Info.Printf("Open %s and enter this code:\n", sess.VerificationURI)
	pterm.Println(codeBox.Render(sess.UserCode))

	if !in.NoBrowser && c.openURL != nil {
		target := sess.VerificationURIComplete
		if target == "" {
			target = sess.VerificationURI
		}
		if err := c.openURL(target); err != nil {
			pterm.Debug.Printf("could not open browser: %v\n", err)
		}
	}

	w := deviceflow.Waiter{
		After: c.after,
		OnUpdate: func(r deviceflow.PollResult) {
			if r.Signal == deviceflow.SignalSlowDown {
				pterm.Debug.Printf("server asked to slow down; polling every %s\n", r.Interval())
			}
		},
	}
	res := w.Wait(ctx, c.svc.Poller(), sess.Interval())

	switch res.State {
	case deviceflow.StateAuthorized:
		pterm.Success.Printf("Logged in to GitHub as %s\n", util.OrDash(res.Username))
		return nil
	case deviceflow.StateExpired:
		return fmt.Errorf("the code expired before it was entered; run badge auth login again")
	case deviceflow.StateDenied:
		return fmt.Errorf("authorization was denied")
	case deviceflow.StateIdle:
		return fmt.Errorf("login was cancelled")
	case deviceflow.StateError:
		return fmt.Errorf("login failed: %s", res.Message)
	}

	// Still awaiting: the context ended first.
	if err := c.svc.CancelDeviceFlow(context.Background()); err != nil {
		pterm.Debug.Printf("cancel session: %v\n", err)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out waiting for authorization")
	}
	return fmt.Errorf("login interrupted")
}

// AuthStatusInput holds input for the status command.
type AuthStatusInput struct {
	Output string
}

// Status prints the active credential.
func (c AuthCmd) Status(ctx context.Context, in AuthStatusInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}
	st, err := c.svc.AuthStatus(ctx)
	if err != nil {
		return err
	}
	if in.Output == "json" {
		return util.PrintPrettyJSON(st)
	}
	if !st.Authenticated {
		pterm.Info.Println("Not connected to GitHub. Run badge auth login, or badge auth token set <token>.")
		return nil
	}

	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"Method", st.Method})
	rows = append(rows, []string{"Username", util.OrDash(st.Username)})
	rows = append(rows, []string{"Name", util.OrDash(st.Name)})
	PrintTableNoPad(rows, true)
	return nil
}

// Logout removes the OAuth credential, and the manual token when all is set.
func (c AuthCmd) Logout(ctx context.Context, all bool) error {
	if err := c.svc.Logout(ctx, all); err != nil {
		return err
	}
	if all {
		pterm.Success.Println("Removed all GitHub credentials")
	} else {
		pterm.Success.Println("Logged out of GitHub")
	}
	return nil
}

// Cancel discards a pending device login.
func (c AuthCmd) Cancel(ctx context.Context) error {
	if err := c.svc.CancelDeviceFlow(ctx); err != nil {
		return err
	}
	pterm.Success.Println("Pending login cancelled")
	return nil
}

// SetToken validates and stores a personal access token.
func (c AuthCmd) SetToken(ctx context.Context, token string) error {
	check, err := c.svc.SetManualToken(ctx, token)
	if err != nil {
		return err
	}
	if !check.Valid {
		return fmt.Errorf("token rejected: %s", check.Error)
	}
	pterm.Success.Printf("Saved token for %s\n", check.Username)
	return nil
}

// ClearToken removes the stored personal access token.
func (c AuthCmd) ClearToken(ctx context.Context) error {
	if err := c.svc.ClearManualToken(ctx); err != nil {
		return err
	}
	pterm.Success.Println("Personal access token removed")
	return nil
}

// PromptInput holds input for the prompt command.
type PromptInput struct {
	Action string
	Output string
}

// Prompt shows or changes the GitHub connection prompt settings.
func (c AuthCmd) Prompt(ctx context.Context, in PromptInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}
	switch in.Action {
	case "", "status":
	case "skip":
		if err := c.svc.SkipPrompt(ctx); err != nil {
			return err
		}
	case "dismiss":
		if err := c.svc.DismissPrompt(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown prompt action %q: use status, skip or dismiss", in.Action)
	}

	st, err := c.svc.PromptState(ctx)
	if err != nil {
		return err
	}
	if in.Output == "json" {
		return util.PrintPrettyJSON(st)
	}
	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"Shown", fmt.Sprintf("%d of %d", st.Count, share.MaxPrompts)})
	rows = append(rows, []string{"Skipped", fmt.Sprintf("%t", st.Skipped)})
	rows = append(rows, []string{"Dismissed", fmt.Sprintf("%t", st.Dismissed)})
	PrintTableNoPad(rows, true)
	return nil
}

// --- Cobra wiring ---

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the GitHub connection used for gist sharing",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Connect GitHub with a device code",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Disconnect GitHub",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active GitHub credential",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a pending device login",
	Args:  cobra.NoArgs,
	RunE:  runAuthCancel,
}

var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage a personal access token",
}

var authTokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Validate and store a personal access token",
	Long:  "Validate a personal access token with the gist scope and store it. Use --stdin to avoid shell history.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthTokenSet,
}

var authTokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored personal access token",
	Args:  cobra.NoArgs,
	RunE:  runAuthTokenClear,
}

var authPromptCmd = &cobra.Command{
	Use:       "prompt [status|skip|dismiss]",
	Short:     "Show or silence the GitHub connection prompt",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"status", "skip", "dismiss"},
	RunE:      runAuthPrompt,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authCancelCmd)
	authCmd.AddCommand(authTokenCmd)
	authCmd.AddCommand(authPromptCmd)
	authTokenCmd.AddCommand(authTokenSetCmd)
	authTokenCmd.AddCommand(authTokenClearCmd)

	authLoginCmd.Flags().Bool("no-browser", false, "Do not open the verification page")
	authLoginCmd.Flags().Duration("timeout", 0, "Give up after this long (default: until the code expires)")

	authLogoutCmd.Flags().Bool("all", false, "Also remove the personal access token")

	authStatusCmd.Flags().StringP("output", "o", "", "Output format (json)")
	authPromptCmd.Flags().StringP("output", "o", "", "Output format (json)")

	authTokenSetCmd.Flags().Bool("stdin", false, "Read the token from stdin")
}

func newAuthCmd(cmd *cobra.Command) AuthCmd {
	return AuthCmd{svc: getService(cmd), openURL: browser.OpenURL}
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	noBrowser, _ := cmd.Flags().GetBool("no-browser")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return newAuthCmd(cmd).Login(cmd.Context(), LoginInput{NoBrowser: noBrowser, Timeout: timeout})
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	return newAuthCmd(cmd).Logout(cmd.Context(), all)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	return newAuthCmd(cmd).Status(cmd.Context(), AuthStatusInput{Output: output})
}

func runAuthCancel(cmd *cobra.Command, args []string) error {
	return newAuthCmd(cmd).Cancel(cmd.Context())
}

func runAuthTokenSet(cmd *cobra.Command, args []string) error {
	fromStdin, _ := cmd.Flags().GetBool("stdin")

	var token string
	switch {
	case fromStdin && len(args) == 1:
		return fmt.Errorf("pass the token as an argument or with --stdin, not both")
	case fromStdin:
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read token from stdin: %w", err)
		}
		token = strings.TrimSpace(line)
	case len(args) == 1:
		token = args[0]
	default:
		return fmt.Errorf("a token argument or --stdin is required")
	}
	return newAuthCmd(cmd).SetToken(cmd.Context(), token)
}

func runAuthTokenClear(cmd *cobra.Command, args []string) error {
	return newAuthCmd(cmd).ClearToken(cmd.Context())
}

func runAuthPrompt(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	action := ""
	if len(args) == 1 {
		action = args[0]
	}
	return newAuthCmd(cmd).Prompt(cmd.Context(), PromptInput{Action: action, Output: output})
}
