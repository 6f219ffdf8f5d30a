// Package all registers every storage backend with the storage factory.
package all

import (
	_ "datalake/internal/storage/mssql"
	_ "datalake/internal/storage/mysql"
	_ "datalake/internal/storage/postgres"
	_ "datalake/internal/storage/sqlite"
)
