package desktop

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/sovereign/internal/util"
	"github.com/hupe1980/sovereign/tool"
)

const (
	// FamilyName identifies the device-control family.
	FamilyName = "pc_control"
	// FamilyPrefix is shared by every device-control action.
	FamilyPrefix = "pc_control_"
	// ScreenshotToolName is the standalone capture action.
	ScreenshotToolName = "take_screenshot"
	// DefaultScreenshotFile is used when no filename is given.
	DefaultScreenshotFile = "screenshot.png"
)

type clickParams struct {
	X      int    `json:"x" description:"Screen x coordinate"`
	Y      int    `json:"y" description:"Screen y coordinate"`
	Button string `json:"button,omitempty" description:"left, middle or right" default:"left"`
}

type moveParams struct {
	X int `json:"x" description:"Screen x coordinate"`
	Y int `json:"y" description:"Screen y coordinate"`
}

type typeParams struct {
	Text string `json:"text" description:"Text to type"`
}

type pressParams struct {
	Key string `json:"key" description:"Key name, e.g. Return or ctrl"`
}

type hotkeyParams struct {
	Keys string `json:"keys" description:"Key combination such as ctrl+c"`
}

type screenshotParams struct {
	Filename string `json:"filename,omitempty" description:"Output image path" default:"screenshot.png"`
}

// NewFamily builds the pc_control_* family over driver.
func NewFamily(driver Driver) *tool.Family {
	f := tool.NewFamily(FamilyName, FamilyPrefix, "Simulate mouse and keyboard input on the desktop.")

	// Add only fails on prefix mismatch or duplicates; both are static here.
	if err := f.Add(
		tool.NewFunctionToolFromStruct(FamilyPrefix+"click", "Click on screen coordinates.", clickParams{},
			func(ctx context.Context, p map[string]any) (string, error) {
				x, y := util.Int(p, "x"), util.Int(p, "y")
				button := util.String(p, "button")
				if button == "" {
					button = "left"
				}
				if err := driver.Click(ctx, x, y, button); err != nil {
					return "", err
				}
				return fmt.Sprintf("Clicked %s at (%d, %d)", button, x, y), nil
			}),
		tool.NewFunctionToolFromStruct(FamilyPrefix+"move", "Move the mouse pointer.", moveParams{},
			func(ctx context.Context, p map[string]any) (string, error) {
				x, y := util.Int(p, "x"), util.Int(p, "y")
				if err := driver.Move(ctx, x, y); err != nil {
					return "", err
				}
				return fmt.Sprintf("Moved pointer to (%d, %d)", x, y), nil
			}),
		tool.NewFunctionToolFromStruct(FamilyPrefix+"type", "Type text.", typeParams{},
			func(ctx context.Context, p map[string]any) (string, error) {
				text := util.String(p, "text")
				if err := driver.Type(ctx, text); err != nil {
					return "", err
				}
				return fmt.Sprintf("Typed %d characters", len([]rune(text))), nil
			}),
		tool.NewFunctionToolFromStruct(FamilyPrefix+"press", "Press a single key.", pressParams{},
			func(ctx context.Context, p map[string]any) (string, error) {
				key := util.String(p, "key")
				if key == "" {
					return "", fmt.Errorf("empty key")
				}
				if err := driver.Press(ctx, key); err != nil {
					return "", err
				}
				return "Pressed " + key, nil
			}),
		tool.NewFunctionToolFromStruct(FamilyPrefix+"hotkey", "Press a key combination.", hotkeyParams{},
			func(ctx context.Context, p map[string]any) (string, error) {
				keys := SplitKeys(util.String(p, "keys"))
				if err := driver.Hotkey(ctx, keys...); err != nil {
					return "", err
				}
				return "Pressed " + strings.Join(keys, "+"), nil
			}),
	); err != nil {
		panic(err)
	}
	return f
}

// NewScreenshotTool exposes screen capture as take_screenshot.
func NewScreenshotTool(driver Driver) *tool.FunctionTool {
	return tool.NewFunctionToolFromStruct(ScreenshotToolName, "Capture the current screen to an image file.", screenshotParams{},
		func(ctx context.Context, p map[string]any) (string, error) {
			filename := util.String(p, "filename")
			if filename == "" {
				filename = DefaultScreenshotFile
			}
			if err := driver.Screenshot(ctx, filename); err != nil {
				return "", err
			}
			return "Screenshot saved to " + filename, nil
		})
}

// SplitKeys splits "ctrl+c", "ctrl, c" or "ctrl c" into key names.
func SplitKeys(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
}
