package user

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Name  string
	Email string
}

// CreateUserResponse is the stored user including its assigned ID.
type CreateUserResponse struct {
	ID    int64
	Name  string
	Email string
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID int64
}

// GetUserResponse represents the response payload for user details.
type GetUserResponse struct {
	ID    int64
	Name  string
	Email string
}

// ListUsersResponse represents the response payload for user listing.
type ListUsersResponse struct {
	Users []User
}

// SeedUsersResponse reports what startup seeding did.
type SeedUsersResponse struct {
	Seeded   bool  // false when the table already had rows
	Inserted int64 // rows actually written, may be lower than requested under a concurrent seed
}

// User represents a user DTO (Data Transfer Object) for API responses.
type User struct {
	ID    int64
	Name  string
	Email string
}
