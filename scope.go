package oauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Scope is a single provider-defined permission, e.g. "chat:read".
type Scope string

// Frequently requested scopes. The provider defines many more; any string is accepted.
const (
	ScopeChatRead          Scope = "chat:read"
	ScopeChatEdit          Scope = "chat:edit"
	ScopeUserReadEmail     Scope = "user:read:email"
	ScopeChannelModerate   Scope = "channel:moderate"
	ScopeModeratorReadChat Scope = "moderator:read:chatters"
	ScopeUserReadChat      Scope = "user:read:chat"
	ScopeUserWriteChat     Scope = "user:write:chat"
)

// String returns the scope
func (s Scope) String() string { return string(s) }

// ScopeSet is an ordered collection of unique scopes.
//
// Order follows construction (or the provider's response) so that serialization
// round-trips, while Equal and IsSubsetOf ignore order. The zero value is an
// empty set. ScopeSet is immutable.
type ScopeSet struct {
	scopes []Scope
}

// NewScopeSet builds a set from scopes, keeping the first occurrence of
// duplicates. An entry containing whitespace is split into its fields, as the
// wire format would, so every set survives ParseScopes(s.String()).
func NewScopeSet(scopes ...Scope) ScopeSet {
	if len(scopes) == 0 {
		return ScopeSet{}
	}
	seen := make(map[Scope]struct{}, len(scopes))
	out := make([]Scope, 0, len(scopes))
	for _, entry := range scopes {
		for _, f := range strings.Fields(string(entry)) {
			sc := Scope(f)
			if _, dup := seen[sc]; dup {
				continue
			}
			seen[sc] = struct{}{}
			out = append(out, sc)
		}
	}
	return ScopeSet{scopes: out}
}

// ParseScopes parses the provider's space-delimited scope string.
func ParseScopes(s string) ScopeSet {
	return NewScopeSet(Scope(s))
}

// String serializes the set to the space-delimited wire format.
func (s ScopeSet) String() string {
	parts := make([]string, len(s.scopes))
	for i, sc := range s.scopes {
		parts[i] = string(sc)
	}
	return strings.Join(parts, " ")
}

// Scopes returns a copy of the scopes in order.
func (s ScopeSet) Scopes() []Scope {
	return append([]Scope(nil), s.scopes...)
}

// Strings returns the scopes as plain strings in order.
func (s ScopeSet) Strings() []string {
	out := make([]string, len(s.scopes))
	for i, sc := range s.scopes {
		out[i] = string(sc)
	}
	return out
}

// Len returns the number of scopes
func (s ScopeSet) Len() int { return len(s.scopes) }

// IsEmpty reports whether the set has no scopes
func (s ScopeSet) IsEmpty() bool { return len(s.scopes) == 0 }

// Contains reports whether scope is in the set
func (s ScopeSet) Contains(scope Scope) bool {
	for _, sc := range s.scopes {
		if sc == scope {
			return true
		}
	}
	return false
}

// IsSubsetOf reports whether every scope of s is also in other.
func (s ScopeSet) IsSubsetOf(other ScopeSet) bool {
	if len(s.scopes) > len(other.scopes) {
		return false
	}
	set := make(map[Scope]struct{}, len(other.scopes))
	for _, sc := range other.scopes {
		set[sc] = struct{}{}
	}
	for _, sc := range s.scopes {
		if _, ok := set[sc]; !ok {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same scopes, in any order.
func (s ScopeSet) Equal(other ScopeSet) bool {
	return len(s.scopes) == len(other.scopes) && s.IsSubsetOf(other)
}

// Missing returns the scopes of want that s does not contain, in want's order.
func (s ScopeSet) Missing(want ScopeSet) ScopeSet {
	var out []Scope
	for _, sc := range want.scopes {
		if !s.Contains(sc) {
			out = append(out, sc)
		}
	}
	return ScopeSet{scopes: out}
}

// MarshalJSON encodes the set as an array of strings.
func (s ScopeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON accepts either an array of strings or a space-delimited
// string; the token endpoint uses both shapes. null yields an empty set.
func (s *ScopeSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ScopeSet{}
		return nil
	}

	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to decode scope string: %w", err)
		}
		*s = ParseScopes(raw)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to decode scope list: %w", err)
	}
	scopes := make([]Scope, len(list))
	for i, sc := range list {
		scopes[i] = Scope(sc)
	}
	*s = NewScopeSet(scopes...)
	return nil
}
