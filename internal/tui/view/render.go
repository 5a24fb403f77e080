package view

// OverlayRenderer renders modal overlays on top of base content.
type OverlayRenderer interface {
	Render(base string, width, height int, content string) string
}

// Frame is one fully rendered screen before the modal is composed in.
type Frame struct {
	Width   int
	Height  int
	Base    string
	Modal   string // empty when no modal is open
	Overlay OverlayRenderer
}

// Render composes the final view output. A zero-sized terminal has not
// reported its size yet.
func Render(f Frame) string {
	if f.Width == 0 || f.Height == 0 {
		return "Loading..."
	}
	if f.Modal != "" && f.Overlay != nil {
		return f.Overlay.Render(f.Base, f.Width, f.Height, f.Modal)
	}
	return f.Base
}
