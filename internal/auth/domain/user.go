package domain

import "time"

// User is a directory record. Usernames are unique and case-sensitive.
type User struct {
	Username     string
	PasswordHash string // argon2id PHC string
	Role         Role
	CreatedAt    time.Time
}
