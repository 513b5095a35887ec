// Package artifact persists trained scaler/model pairs. A pair is two
// msgpack files, each opening with a Descriptor; the descriptors tie the
// files together through a shared run id and bind them to the feature
// schema they were trained against.
package artifact

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Kind names the inference task an artifact serves.
type Kind string

const (
	KindGenre Kind = "genre"
	KindMood  Kind = "mood"
)

func (k Kind) IsValid() bool { return k == KindGenre || k == KindMood }

// ParseKind converts a command-line style name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid artifact kind: %q", s)
	}
	return k, nil
}

// UnmarshalMsgpack implements msgpack.Unmarshaler with validation.
func (k *Kind) UnmarshalMsgpack(data []byte) error {
	var s string
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Role says which half of a pair a file holds.
type Role string

const (
	RoleScaler Role = "scaler"
	RoleModel  Role = "model"
)

func (r Role) IsValid() bool { return r == RoleScaler || r == RoleModel }

// UnmarshalMsgpack implements msgpack.Unmarshaler with validation.
func (r *Role) UnmarshalMsgpack(data []byte) error {
	var s string
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return err
	}
	role := Role(s)
	if !role.IsValid() {
		return fmt.Errorf("invalid artifact role: %q", s)
	}
	*r = role
	return nil
}

// Model type names recorded in descriptors.
const (
	ModelStandardScaler = "standard_scaler"
	ModelRandomForest   = "random_forest"
	ModelMLP            = "mlp_regressor"
)

// Descriptor heads every artifact file.
type Descriptor struct {
	Kind       Kind      `msgpack:"kind"`
	Role       Role      `msgpack:"role"`
	RunID      string    `msgpack:"run_id"`
	SchemaHash string    `msgpack:"schema_hash"`
	Features   int       `msgpack:"features"`
	ModelType  string    `msgpack:"model_type"`
	CreatedAt  time.Time `msgpack:"created_at"`
}
