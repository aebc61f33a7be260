// Package appfs embeds the static files shipped with the binaries: SQL migrations and assets.
package appfs

import "embed"

//go:embed migrations assets assets/templates/email/_base.*
var FS embed.FS
