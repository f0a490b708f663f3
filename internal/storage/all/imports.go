// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs each backend's init, which registers its factory. Importing it
// makes the "mysql", "postgres", "mssql" and "sqlite" kinds available to
// storage.New.
package all

import (
	_ "salesload/internal/storage/mssql"
	_ "salesload/internal/storage/mysql"
	_ "salesload/internal/storage/postgres"
	_ "salesload/internal/storage/sqlite"
)
