package models

import "time"

// User is a registered platform user. Username is the identity
// (stored lowercased); every registered user has exactly one ledger
// address.
type User struct {
	Id        string    `db:"id"`
	Username  string    `db:"username"`
	CreatedAt time.Time `db:"created_at"`
}

// UserAddress is a user's ledger address. One per user.
type UserAddress struct {
	Id        string    `db:"id"`
	Username  string    `db:"username"`
	Address   string    `db:"address"`
	CreatedAt time.Time `db:"created_at"`
}
