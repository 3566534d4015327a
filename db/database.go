package db

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"
)

// InitDB opens the postgres connection and applies the schema.
func InitDB(dsn string) *sql.DB {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	if err = conn.Ping(); err != nil {
		log.Fatalf("connect to database: %v", err)
	}

	applySchema(conn)
	log.Println("database initialized")
	return conn
}

func applySchema(conn *sql.DB) {
	schema, err := os.ReadFile("db/schema.sql")
	if err != nil {
		log.Fatalf("read schema file: %v", err)
	}

	if _, err = conn.Exec(string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
}
