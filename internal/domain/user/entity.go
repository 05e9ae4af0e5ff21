package user

// User represents a user entity in the system.
type User struct {
	ID    int64  // ID is assigned by the database
	Name  string // Name is the display name of the user
	Email string // Email is unique across all users
}

// SeedUsers are inserted at startup when the users table is empty.
func SeedUsers() []User {
	return []User{
		{Name: "Alice", Email: "alice@example.com"},
		{Name: "Bob", Email: "bob@example.com"},
		{Name: "Charlie", Email: "charlie@example.com"},
	}
}
