package operatorRepository

var schemaStatements = []string{
	`
		CREATE TABLE IF NOT EXISTS operators (
			id VARCHAR(26) PRIMARY KEY,
			username VARCHAR(64) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`,
}

const (
	queryUpsertOperator = `
		INSERT INTO operators (id, username, password_hash, created_at, updated_at)
		VALUES (:id, :username, :password_hash, :created_at, :updated_at)
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    updated_at = EXCLUDED.updated_at
	`

	queryGetByUsername = `
		SELECT id, username, password_hash, created_at
		FROM operators
		WHERE username = :username
	`
)
