package prompt

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// Browser opens URLs in the system browser
type Browser struct{}

// Open starts the platform's URL handler without waiting for it
func (Browser) Open(url string) error {
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
		return fmt.Errorf("open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Printer writes URLs instead of opening them, for headless runs
type Printer struct {
	W io.Writer
}

// Open prints the URL
func (p Printer) Open(url string) error {
	_, err := fmt.Fprintf(p.W, "review: %s\n", url)
	return err
}
