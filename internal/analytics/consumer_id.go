package analytics

import (
	"os"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewConsumerID names this process inside the job-view consumer group:
// "<host>-<pid>-<ulid>". The ULID keeps restarts on the same host distinct.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "hireline"
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	return host + "-" + strconv.Itoa(os.Getpid()) + "-" + strings.ToLower(ulid.Make().String())
}
