package forumauth_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/forumauth"
	"github.com/MrEthical07/forumauth/store/memory"
)

func exampleEngine() *forumauth.Engine {
	cfg := forumauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("example-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("example-refresh-secret-0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := forumauth.New().WithConfig(cfg).WithCredentialStore(memory.New()).Build()
	if err != nil {
		panic(err)
	}
	return engine
}

func ExampleEngine_Register() {
	engine := exampleEngine()
	defer engine.Close()

	user, err := engine.Register(context.Background(), forumauth.RegisterRequest{
		Email:           "Alice@Example.com",
		Username:        "alice",
		Password:        "Str0ng!Pass99",
		ConfirmPassword: "Str0ng!Pass99",
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(user.Email, user.Role)

	_, err = engine.Register(context.Background(), forumauth.RegisterRequest{
		Email:           "bob@example.com",
		Username:        "bob",
		Password:        "password",
		ConfirmPassword: "password",
	})
	fmt.Println(forumauth.Code(err))
	// Output:
	// alice@example.com user
	// password_compromised
}

func ExampleEngine_Login() {
	engine := exampleEngine()
	defer engine.Close()
	ctx := context.Background()

	_, _ = engine.Register(ctx, forumauth.RegisterRequest{
		Email:           "alice@example.com",
		Username:        "alice",
		Password:        "Str0ng!Pass99",
		ConfirmPassword: "Str0ng!Pass99",
	})

	for i := 0; i < 5; i++ {
		_, _ = engine.Login(ctx, "alice@example.com", "Wr0ng!Password")
	}

	_, err := engine.Login(ctx, "alice@example.com", "Str0ng!Pass99")
	var locked *forumauth.LockedError
	if errors.As(err, &locked) {
		fmt.Println(forumauth.Code(err), locked.RemainingMinutes())
	}
	// Output:
	// account_locked 15
}

func ExampleEngine_Refresh() {
	engine := exampleEngine()
	defer engine.Close()
	ctx := context.Background()

	_, _ = engine.Register(ctx, forumauth.RegisterRequest{
		Email:           "alice@example.com",
		Username:        "alice",
		Password:        "Str0ng!Pass99",
		ConfirmPassword: "Str0ng!Pass99",
	})
	res, _ := engine.Login(ctx, "alice@example.com", "Str0ng!Pass99")
	fmt.Println(res.Tokens.AccessExpiresIn)

	_, err := engine.Refresh(ctx, res.Tokens.RefreshToken)
	fmt.Println(err)

	_, err = engine.Refresh(ctx, res.Tokens.RefreshToken)
	fmt.Println(forumauth.Code(err))
	// Output:
	// 15m0s
	// <nil>
	// token_revoked
}
