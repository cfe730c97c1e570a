// Package desktop exposes mouse, keyboard and screen capture capabilities as
// the pc_control_* tool family and the take_screenshot tool.
package desktop

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Driver performs device-level input and capture.
type Driver interface {
	Move(ctx context.Context, x, y int) error
	Click(ctx context.Context, x, y int, button string) error
	Type(ctx context.Context, text string) error
	Press(ctx context.Context, key string) error
	Hotkey(ctx context.Context, keys ...string) error
	Screenshot(ctx context.Context, filename string) error
}

// ExecFunc runs an external program and returns its combined output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// XDoTool drives an X11 desktop through the xdotool and ImageMagick import
// binaries.
type XDoTool struct {
	// Exec runs the binaries. Defaults to os/exec.
	Exec ExecFunc
	// TypeDelayMs is the delay between typed characters.
	TypeDelayMs int
}

// NewXDoTool creates a driver using os/exec.
func NewXDoTool() *XDoTool {
	return &XDoTool{Exec: runCombined, TypeDelayMs: 50}
}

var buttons = map[string]string{"left": "1", "middle": "2", "right": "3"}

// Move implements Driver.
func (d *XDoTool) Move(ctx context.Context, x, y int) error {
	return d.run(ctx, "xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y))
}

// Click implements Driver.
func (d *XDoTool) Click(ctx context.Context, x, y int, button string) error {
	if button == "" {
		button = "left"
	}
	b, ok := buttons[strings.ToLower(button)]
	if !ok {
		return fmt.Errorf("unsupported mouse button %q", button)
	}
	return d.run(ctx, "xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y), "click", b)
}

// Type implements Driver.
func (d *XDoTool) Type(ctx context.Context, text string) error {
	return d.run(ctx, "xdotool", "type", "--delay", strconv.Itoa(d.TypeDelayMs), "--", text)
}

// Press implements Driver.
func (d *XDoTool) Press(ctx context.Context, key string) error {
	return d.run(ctx, "xdotool", "key", "--", key)
}

// Hotkey implements Driver.
func (d *XDoTool) Hotkey(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return fmt.Errorf("no keys given")
	}
	return d.run(ctx, "xdotool", "key", "--", strings.Join(keys, "+"))
}

// Screenshot implements Driver.
func (d *XDoTool) Screenshot(ctx context.Context, filename string) error {
	return d.run(ctx, "import", "-window", "root", filename)
}

func (d *XDoTool) run(ctx context.Context, name string, args ...string) error {
	fn := d.Exec
	if fn == nil {
		fn = runCombined
	}
	out, err := fn(ctx, name, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
