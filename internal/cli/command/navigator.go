package command

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
)

// openURL hands url to the desktop's default handler.
var openURL = func(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// browserNavigator shows the OAuth provider URL and, when asked, opens
// it in the browser.
type browserNavigator struct {
	out io.Writer

	mu     sync.Mutex
	launch bool
}

func (n *browserNavigator) setLaunch(launch bool) {
	n.mu.Lock()
	n.launch = launch
	n.mu.Unlock()
}

// Navigate implements service.Navigator.
func (n *browserNavigator) Navigate(_ context.Context, url string) error {
	fmt.Fprintf(n.out, "Open this URL in your browser to continue:\n\n  %s\n\n", url)

	n.mu.Lock()
	launch := n.launch
	n.mu.Unlock()

	if launch {
		if err := openURL(url); err != nil {
			fmt.Fprintf(n.out, "Could not open a browser: %v\n", err)
		}
	}
	return nil
}
