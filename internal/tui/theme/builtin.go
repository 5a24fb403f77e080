package theme

var builtins = map[string]string{
	"court": courtTheme,
	"night": nightTheme,
	"chalk": chalkTheme,
}

// Hard-court greens and blues on a dark base.
const courtTheme = `
name = "court"
bg = "#14201b"
bg_highlight = "#1d2d26"
bg_selection = "#2c4438"
fg = "#e4efe8"
fg_muted = "#8aa396"
accent = "#4fb38a"

available = "#1a2922"
occupied = "#3d7eb8"
blocked = "#8a6a3a"
selected = "#4fb38a"
unblock = "#2f5d4a"
unbook = "#5d4a6e"
cancelled = "#6e3d3d"

unread = "#f2c14e"
warning = "#e07a5f"
`

const nightTheme = `
name = "night"
bg = "#1e1e2e"
bg_highlight = "#27273a"
bg_selection = "#45475a"
fg = "#cdd6f4"
fg_muted = "#7f849c"
accent = "#89b4fa"

available = "#232336"
occupied = "#7aa2f7"
blocked = "#9e8b60"
selected = "#a6e3a1"
unblock = "#3b5b4a"
unbook = "#5b4b70"
cancelled = "#74414a"

unread = "#f9e2af"
warning = "#f38ba8"

base_bg = "#181825"
`

// Light theme for bright rooms.
const chalkTheme = `
name = "chalk"
bg = "#f7f5f0"
bg_highlight = "#ecebe4"
bg_selection = "#d9d6cb"
fg = "#2b2a27"
fg_muted = "#6d6a62"
accent = "#2f6feb"

available = "#f2f0ea"
occupied = "#2f6feb"
blocked = "#a0743a"
selected = "#1d8a5a"
unblock = "#b9dcc8"
unbook = "#d3c4e6"
cancelled = "#e8c0c0"

unread = "#c2410c"
warning = "#b42318"
`
