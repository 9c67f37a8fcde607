// Build information, injected at link time with
// -ldflags "-X github.com/nais/disquick/pkg/version.Revision=... -X github.com/nais/disquick/pkg/version.Date=..."
package version

import (
	"fmt"
	"time"
)

var (
	Revision = "unknown"
	Date     = ""
)

func Version() string {
	return Revision
}

func BuildTime() (time.Time, error) {
	if len(Date) == 0 {
		return time.Time{}, fmt.Errorf("build time not set")
	}
	return time.Parse(time.RFC3339, Date)
}
