package postgres

// SQL query constants for metadata operations

const (
	// _SQL_CREATE_USER inserts a new identity
	_SQL_CREATE_USER = `
		INSERT INTO users (id, email, password_digest)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	// _SQL_GET_USER_BY_ID retrieves an identity by reference
	_SQL_GET_USER_BY_ID = `
		SELECT id, email, password_digest, created_at
		FROM users
		WHERE id = $1`

	// _SQL_GET_USER_BY_EMAIL retrieves an identity by email
	_SQL_GET_USER_BY_EMAIL = `
		SELECT id, email, password_digest, created_at
		FROM users
		WHERE email = $1`

	_SQL_COUNT_USERS = `SELECT COUNT(*) FROM users`

	// _SQL_CREATE_FILE inserts a new file record
	_SQL_CREATE_FILE = `
		INSERT INTO files (id, user_id, name, type, is_public, parent_id, blob_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	// _SQL_GET_FILE retrieves a file record by ID
	_SQL_GET_FILE = `
		SELECT id, user_id, name, type, is_public, parent_id, blob_key, created_at, updated_at
		FROM files
		WHERE id = $1`

	// _SQL_UPDATE_FILE updates the mutable fields of a file record
	_SQL_UPDATE_FILE = `
		UPDATE files
		SET name = $1, is_public = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	// _SQL_LIST_FILES lists one page of an owner's files under a parent
	_SQL_LIST_FILES = `
		SELECT id, user_id, name, type, is_public, parent_id, blob_key, created_at, updated_at
		FROM files
		WHERE user_id = $1 AND parent_id = $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3 OFFSET $4`

	_SQL_COUNT_FILES = `SELECT COUNT(*) FROM files`
)
