package appfs

import "embed"

// FS embeds files needed at runtime, database migrations included.
//
//go:embed migrations
var FS embed.FS
