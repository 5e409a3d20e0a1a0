package perception

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"deskmate/internal/logging"
)

// ExecCapturer shells out to the platform screenshot tool and reads the
// resulting PNG. It keeps no state; each Capture is independent.
type ExecCapturer struct {
	// Command overrides the platform default. The file path is appended
	// as the final argument.
	Command []string
}

// NewExecCapturer creates a capturer using the platform default tool.
func NewExecCapturer() *ExecCapturer {
	return &ExecCapturer{}
}

// Capture takes a screenshot of the primary display.
func (c *ExecCapturer) Capture(ctx context.Context) (*Screenshot, error) {
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("deskmate-shot-%d.png", time.Now().UnixNano()))
	defer os.Remove(tmp)

	args := c.commandFor(tmp)
	if len(args) == 0 {
		return nil, fmt.Errorf("no screenshot tool for platform %s", runtime.GOOS)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("screenshot command %s failed: %v (%s)", args[0], err, string(out))
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to read screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("screenshot file is empty")
	}

	logging.EngineDebug("captured screenshot (%d bytes)", len(data))
	return &Screenshot{PNG: data, CapturedAt: time.Now()}, nil
}

func (c *ExecCapturer) commandFor(path string) []string {
	if len(c.Command) > 0 {
		return append(append([]string(nil), c.Command...), path)
	}
	switch runtime.GOOS {
	case "darwin":
		// -x suppresses the shutter sound.
		return []string{"screencapture", "-x", path}
	case "linux":
		return []string{"scrot", "-o", "-z", path}
	case "windows":
		return []string{"powershell", "-NoProfile", "-Command",
			"Add-Type -AssemblyName System.Windows.Forms,System.Drawing; " +
				"$b = [System.Windows.Forms.Screen]::PrimaryScreen.Bounds; " +
				"$img = New-Object System.Drawing.Bitmap($b.Width, $b.Height); " +
				"$g = [System.Drawing.Graphics]::FromImage($img); " +
				"$g.CopyFromScreen($b.Location, [System.Drawing.Point]::Empty, $b.Size); " +
				"$img.Save('" + path + "')"}
	default:
		return nil
	}
}
