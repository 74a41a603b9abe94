// Copyright 2024 The Comunidad Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	_ "embed"

	"comunidad.app/comunichat/internal/storage"
)

//go:embed schema.sql
var schema string

// expectedDBVersion is the schema version required by this build.
const expectedDBVersion = 1

// Migrations is a collection of migrations for upgrading the database.
// It automatically checks the expected schema version of the application
// and orders itself to upgrade or downgrade the database to the correct
// version.
func Migrations() storage.Migrations {
	return storage.Migrations{
		{
			Version: 1,
			Up:      schema,
			Down: `
			PRAGMA writable_schema = 1;
			delete from sqlite_master where type in ('view', 'table', 'index', 'trigger');
			PRAGMA writable_schema = 0;`,
		},
	}
}
