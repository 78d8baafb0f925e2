package database

const (
	// User queries
	queryInsertUser = `
		INSERT INTO users (id, username) VALUES (?, ?)`

	queryGetUserByName = `
		SELECT id, username, created_at
		FROM users
		WHERE username = ?`

	queryDeleteUser = `
		DELETE FROM users WHERE username = ?`

	queryAllUsernames = `
		SELECT username FROM users ORDER BY username`

	// Address queries
	queryInsertAddress = `
		INSERT INTO addresses (id, username, address) VALUES (?, ?, ?)`

	queryGetUserAddress = `
		SELECT address FROM addresses WHERE username = ?`

	queryCountUserAddresses = `
		SELECT COUNT(*) FROM addresses WHERE username = ?`

	// Action queries
	queryUpsertAction = `
		INSERT INTO actions (
			message_id, kind, status, amount, source, destination, address, tx_id, message_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			kind = excluded.kind,
			status = excluded.status,
			amount = excluded.amount,
			source = excluded.source,
			destination = excluded.destination,
			address = excluded.address,
			tx_id = excluded.tx_id,
			message_at = excluded.message_at,
			updated_at = CURRENT_TIMESTAMP`

	queryActionExists = `
		SELECT 1 FROM actions`

	querySelectActions = `
		SELECT message_id, kind, status, amount, source, destination, address, tx_id, message_at, created_at
		FROM actions`

	queryUserHistory = `
		SELECT message_id, kind, status, amount, source, destination, address, tx_id, message_at, created_at
		FROM actions
		WHERE source = ? OR destination = ?
		ORDER BY message_at DESC
		LIMIT ?`
)
