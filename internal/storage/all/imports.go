// Package all registers every built-in storage backend. Import it for side
// effects from the wiring layer (cmd/dijoin):
//
//	import _ "ditools/internal/storage/all"
//
// after which storage.New accepts the kinds "sqlite", "postgres", "mysql"
// and "mssql". A binary that needs fewer drivers can import the backend
// packages it wants directly instead.
package all

import (
	_ "ditools/internal/storage/mssql"
	_ "ditools/internal/storage/mysql"
	_ "ditools/internal/storage/postgres"
	_ "ditools/internal/storage/sqlite"
)
