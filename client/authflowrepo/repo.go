package authflowrepo

import "time"

// AuthFlowState is what the client remembers between sending a user to the provider and the callback.
type AuthFlowState struct {
	ReturnURL string
	CreatedAt time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error
}
