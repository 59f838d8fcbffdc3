package session

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Options carries every knob the CLI front-end exposes, unchanged in
// shape from one session shape to the next — Clone, Pull, and Verify
// each read the subset that applies to them.
type Options struct {
	Host            string
	Port            string
	RepositoryPath  string
	Branch          string
	TargetDirectory string
	WorkDirectory   string

	// Have and Want manually override discovery: Want skips ls-refs and
	// fetches this commit directly, Have overrides the negotiation base
	// otherwise derived from the prior manifest's tip (Pull) or left
	// empty (Clone).
	Have string
	Want string

	ForceClone bool
	KeepPack   bool
	UsePack    string

	Verbosity    int
	InsecureHTTP bool
	Timeout      time.Duration

	Logger *log.Logger
}

// RemoteURL builds the http(s) endpoint this session's transport talks
// to from the Host/Port/RepositoryPath triple.
func (o Options) RemoteURL() string {
	scheme := "https"
	if o.InsecureHTTP {
		scheme = "http"
	}
	hostport := o.Host
	if o.Port != "" {
		hostport = fmt.Sprintf("%s:%s", o.Host, o.Port)
	}
	path := strings.TrimPrefix(o.RepositoryPath, "/")
	return fmt.Sprintf("%s://%s/%s", scheme, hostport, path)
}

func (o Options) logf(level int, format string, args ...any) {
	if o.Logger == nil || o.Verbosity < level {
		return
	}
	o.Logger.Printf(format, args...)
}
