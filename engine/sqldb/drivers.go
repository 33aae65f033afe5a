package sqldb

// Drivers registered with database/sql: "postgres", "mysql", "sqlserver"/"mssql".
import (
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)
