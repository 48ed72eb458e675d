package appfs

import "embed"

// FS holds the database migrations and static assets shipped with the binaries.
//go:embed migrations/*.sql assets/*
var FS embed.FS
