// Package appfs embeds application assets available at runtime.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
