package appfs

import "embed"

// FS embeds static assets shipped with the binary.
//go:embed migrations
var FS embed.FS
