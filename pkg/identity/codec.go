package identity

import (
	"encoding/json"

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/storage"
)

// Kind is the storage kind for users.
const Kind = "user"

type userState struct {
	Email        string   `json:"email"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"password_hash"`
	Roles        []string `json:"roles"`
}

// Codec converts users to and from their persisted JSON payload.
type Codec struct{}

func (Codec) Marshal(u *User) ([]byte, error) {
	return json.Marshal(userState{
		Email:        u.email,
		Username:     u.username,
		PasswordHash: u.passwordHash,
		Roles:        u.roles,
	})
}

func (Codec) Unmarshal(rec storage.Record) (*User, error) {
	var state userState
	if err := json.Unmarshal(rec.Data, &state); err != nil {
		return nil, err
	}
	return &User{
		AggregateRoot: domain.RehydrateAggregateRoot(rec.ID, rec.Version, rec.Discarded),
		email:         state.Email,
		username:      state.Username,
		passwordHash:  state.PasswordHash,
		roles:         state.Roles,
	}, nil
}
