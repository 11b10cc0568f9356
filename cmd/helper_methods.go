package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	"github.com/PolarWolf314/lastwill/internal/ui"
	"github.com/PolarWolf314/lastwill/internal/utils"
	"github.com/briandowns/spinner"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// promptPassphrase asks for the passphrase on the terminal. It is only
// called when the configured passphrase variable is unset.
func promptPassphrase() ([]byte, error) {
	if !utils.IsTerminal() {
		return nil, nil
	}
	return utils.ReadPassphrase("Passphrase: ")
}

// confirmAction prompts the user to confirm a destructive operation.
func confirmAction(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s [y/N]: ", question)
	response, err := reader.ReadString('\n')
	if err != nil {
		Logger.Errorf("Failed to read response: %v", err)
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// formatError turns a workflow error into the message shown to the user.
func formatError(action string, err error) string {
	cross := ui.Error.Sprint("✗")
	hint := func(text string) string { return "\n" + ui.Info.Sprint("→") + " " + text }

	switch {
	case errors.Is(err, lerrors.ErrConfigNotFound):
		return cross + " lastwill has not been initialized" +
			hint("Run "+ui.Code.Sprint("lastwill init --user <id>")+" first")
	case errors.Is(err, lerrors.ErrInvalidConfig):
		return cross + " " + err.Error() +
			hint("Fix the file or run "+ui.Code.Sprint("lastwill init --force"))
	case errors.Is(err, lerrors.ErrAlreadyInitialized):
		return cross + " " + err.Error() +
			hint("Use "+ui.Flag.Sprint("--force")+" to overwrite it")
	case errors.Is(err, lerrors.ErrMapNotFound):
		return cross + " No will has been stored" +
			hint("Run "+ui.Code.Sprint("lastwill store <file>")+" first")
	case errors.Is(err, lerrors.ErrCipher):
		return cross + " " + action + " failed: the key does not open the stored fragments" +
			hint("Check the passphrase and key derivation in the configuration")
	case errors.Is(err, lerrors.ErrNoAuditLog):
		return ui.Info.Sprint("ℹ") + " No audit log found. Operations will be logged after running any command."
	default:
		return cross + " " + action + " failed: " + err.Error()
	}
}

// isUnexpectedError returns true if the error is unexpected and should cause a non-zero exit.
func isUnexpectedError(err error) bool {
	switch {
	case errors.Is(err, lerrors.ErrConfigNotFound),
		errors.Is(err, lerrors.ErrAlreadyInitialized),
		errors.Is(err, lerrors.ErrNoAuditLog),
		errors.Is(err, lerrors.ErrInvalidDateFormat):
		return false
	default:
		return true
	}
}

// fail sets the spinner's final message for err and decides the exit status.
func fail(s *spinner.Spinner, action string, err error) error {
	s.FinalMSG = formatError(action, err)
	if isUnexpectedError(err) {
		return err
	}
	return nil
}
