package capability

import (
	"context"

	"github.com/AmareGatie/phase4/state"
)

// Auth operations.
const (
	OpLogin  = "login"
	OpLogout = "logout"
)

// AuthState is the client-side signed-in flag. It is presentation state only;
// request authentication is the gate's job.
type AuthState struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

// AuthProvider declares the auth container, signed out initially.
func AuthProvider() state.Provider {
	return state.Provide(Auth, AuthState{}, map[string]state.Reducer[AuthState]{
		OpLogin: func(current AuthState, args any) (AuthState, error) {
			username, err := argAs[string](Auth, "username", args)
			if err != nil {
				return current, err
			}
			return AuthState{Authenticated: true, Username: username}, nil
		},
		OpLogout: func(AuthState, any) (AuthState, error) {
			return AuthState{}, nil
		},
	})
}

// AuthHandle is the typed view of the auth capability.
type AuthHandle struct {
	*state.Handle[AuthState]
}

// UseAuth returns the auth handle of scope.
func UseAuth(scope *state.Scope) (AuthHandle, error) {
	h, err := state.Use[AuthState](scope, Auth)
	return AuthHandle{h}, err
}

// Login marks username as signed in.
func (a AuthHandle) Login(ctx context.Context, username string) (AuthState, error) {
	return a.Apply(ctx, OpLogin, username)
}

// Logout clears the flag.
func (a AuthHandle) Logout(ctx context.Context) (AuthState, error) {
	return a.Apply(ctx, OpLogout, nil)
}
