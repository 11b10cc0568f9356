// Package notify tells the nominee that a will has been released.
//
// A Notifier delivers a Notice once per call and never retries; the
// liveness monitor decides when delivery is attempted again.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Subject is the subject line of every nominee notice.
const Subject = "[URGENT] Digital Asset Retrieval Access"

// Notice describes a released will.
type Notice struct {
	Recipient  string
	Locator    string
	Fragments  []string
	ExecutedAt time.Time
	// Sealed reports whether the package is encrypted to the nominee's
	// age identity.
	Sealed bool
}

// Notifier delivers notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Body renders the plain-text message sent to the nominee.
func Body(n Notice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The owner of this digital will has been inactive past the agreed grace period.\n\n")
	fmt.Fprintf(&b, "The assets were released at %s and can be claimed here:\n\n", n.ExecutedAt.UTC().Format(time.RFC1123))
	fmt.Fprintf(&b, "    %s\n\n", n.Locator)
	if n.Sealed {
		fmt.Fprintf(&b, "The package is encrypted to your age identity. Decrypt it with:\n\n")
		fmt.Fprintf(&b, "    age --decrypt -i <your identity file> -o package.zip <downloaded file>\n\n")
	}
	if len(n.Fragments) > 0 {
		fmt.Fprintf(&b, "Files reassembled: %s\n", strings.Join(n.Fragments, ", "))
	}
	return b.String()
}
