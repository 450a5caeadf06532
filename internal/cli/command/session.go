package command

import (
	"fmt"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/chartered-cli/internal/cli/output"
	"github.com/yndnr/chartered-cli/internal/core/domain"
	"github.com/yndnr/chartered-cli/internal/core/service"
	"github.com/yndnr/chartered-cli/internal/infra/shutdown"
)

// shutdownTimeout bounds the cleanup of long-running commands.
const shutdownTimeout = 5 * time.Second

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Inspect and renew the current session",
		Subcommands: []*cli.Command{
			{
				Name:    "status",
				Aliases: []string{"whoami"},
				Usage:   "Show the current session",
				Action:  sessionStatusAction,
			},
			{
				Name:    "extend",
				Aliases: []string{"renew"},
				Usage:   "Extend the session once",
				Action:  sessionExtend,
			},
			{
				Name:  "keepalive",
				Usage: "Keep extending the session until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "metrics-address",
						Usage: "Serve Prometheus metrics on host:port",
					},
				},
				Action: sessionKeepalive,
			},
		},
	}
}

// sessionStatus is the printable view of the held session. It never
// includes the token.
type sessionStatus struct {
	Server        string     `json:"server" yaml:"server"`
	Authenticated bool       `json:"authenticated" yaml:"authenticated"`
	UserID        string     `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	ExpiresIn     string     `json:"expires_in,omitempty" yaml:"expires_in,omitempty"`
	Fingerprint   string     `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	PictureURL    string     `json:"picture_url,omitempty" yaml:"picture_url,omitempty"`
	Storage       string     `json:"storage" yaml:"storage"`
}

func newSessionStatus(rt *Runtime) sessionStatus {
	st := sessionStatus{
		Server:        rt.Gateway.BaseURL(),
		Authenticated: rt.Store.IsAuthenticated(),
		Storage:       rt.Config.Storage.Engine,
	}

	s := rt.Store.Current()
	if s == nil {
		return st
	}

	expires := s.ExpiresAt.Local()
	st.UserID = s.UserID
	st.ExpiresAt = &expires
	st.Fingerprint = s.Fingerprint()
	st.PictureURL = s.PictureURL
	if st.Authenticated {
		st.ExpiresIn = rt.Store.ExpiresIn().Round(time.Second).String()
	} else {
		st.ExpiresIn = "expired"
	}
	return st
}

func sessionStatusAction(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	format, err := outputFormat(c, rt)
	if err != nil {
		return err
	}
	return output.Print(c.App.Writer, format, newSessionStatus(rt))
}

func sessionExtend(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	if rt.Store.Current() == nil {
		return domain.ErrNotAuthenticated
	}

	ctx, cancel := commandContext(c, rt)
	defer cancel()

	var report service.TickReport
	_ = withSpinner(c, "Extending session", func() error {
		report = rt.Scheduler().TickNow(ctx)
		return report.Err
	})

	switch report.Result {
	case service.TickExtended:
		fmt.Fprintf(c.App.Writer, "Session extended until %s.\n", report.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	case service.TickStale:
		fmt.Fprintln(c.App.Writer, "Session changed during the extension; nothing to do.")
		return nil
	case service.TickSkipped:
		return domain.ErrNotAuthenticated
	default:
		return report.Err
	}
}

// sessionEnd records why the held session went away.
type sessionEnd struct {
	mu     sync.Mutex
	reason domain.ChangeReason
}

func (e *sessionEnd) set(reason domain.ChangeReason) {
	e.mu.Lock()
	e.reason = reason
	e.mu.Unlock()
}

func (e *sessionEnd) get() domain.ChangeReason {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason
}

func sessionKeepalive(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	s := rt.Store.Current()
	if s == nil {
		return domain.ErrNotAuthenticated
	}

	if err := rt.StartSync(); err != nil {
		return err
	}

	h := shutdown.NewHandler(shutdownTimeout)

	addr := rt.Config.Metrics.Address
	if c.IsSet("metrics-address") {
		addr = c.String("metrics-address")
	}
	if addr != "" {
		srv, err := serveMetrics(addr, rt.Metrics, rt.Logger)
		if err != nil {
			return err
		}
		h.OnShutdown(srv.Shutdown)
		fmt.Fprintf(c.App.ErrWriter, "Serving metrics on %s\n", srv.URL())
	}

	var end sessionEnd
	unsubscribe := rt.Store.Subscribe(func(ch service.Change) {
		if ch.Session == nil {
			end.set(ch.Reason)
			h.Trigger()
		}
	})
	defer unsubscribe()

	scheduler := rt.Scheduler()
	if report := scheduler.TickNow(baseContext(c)); report.Result == service.TickExtended {
		fmt.Fprintf(c.App.ErrWriter, "Session extended until %s.\n", report.ExpiresAt.Local().Format(time.RFC1123))
	}

	fmt.Fprintf(c.App.ErrWriter, "Keeping the session of %s alive every %s. Press Ctrl+C to stop.\n",
		s.UserID, rt.Config.Extension.Interval)

	if err := h.WaitContext(baseContext(c)); err != nil {
		rt.Logger.Warn("shutdown hook failed", "error", err)
	}

	if h.Reason() != shutdown.ReasonTriggered {
		return nil
	}
	switch end.get() {
	case domain.ReasonForcedLogout:
		return domain.ErrSessionExpired
	default:
		fmt.Fprintln(c.App.ErrWriter, "The session was ended elsewhere.")
		return nil
	}
}
