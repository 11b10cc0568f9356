package notify

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/PolarWolf314/lastwill/internal/logging"
)

// LogNotifier prints the notice instead of sending it. It is the default
// when no SMTP server is configured.
type LogNotifier struct {
	Logger logger.Logger
}

func (n LogNotifier) Notify(ctx context.Context, notice Notice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if notice.Recipient == "" {
		return fmt.Errorf("no nominee address configured")
	}
	n.Logger.Printf("Simulated email to %s", notice.Recipient)
	n.Logger.Printf("  Subject: %s", Subject)
	n.Logger.Printf("  Link: %s", notice.Locator)
	n.Logger.Printf("  Files ready: %s", strings.Join(notice.Fragments, ", "))
	n.Logger.Debugf("Notice body:\n%s", Body(notice))
	return nil
}
