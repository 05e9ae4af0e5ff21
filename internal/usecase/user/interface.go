package user

import "context"

// UserUsecase defines the user operations exposed to transports.
type UserUsecase interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error)
	GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error)
	ListUsers(ctx context.Context) (*ListUsersResponse, error)
	SeedUsers(ctx context.Context) (*SeedUsersResponse, error)
}

var _ UserUsecase = (*Usecase)(nil)
