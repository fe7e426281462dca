package spec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the derived state-machine position of a ConnectionState.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// ConnectionState is the single wallet-connection record owned by a session
// manager. Values are snapshots; mutate only through the manager.
//
// Invariant: IsConnected == (Address != "").
type ConnectionState struct {
	Address      string `json:"address,omitempty"`
	IsConnected  bool   `json:"isConnected"`
	IsConnecting bool   `json:"isConnecting"`

	// ChainID is meaningful only when IsConnected. Zero means unknown.
	ChainID uint64 `json:"chainId,omitempty"`

	// Version increases on every mutation of the record.
	Version uint64 `json:"version"`
}

func (s ConnectionState) Status() Status {
	switch {
	case s.IsConnecting:
		return StatusConnecting
	case s.IsConnected:
		return StatusConnected
	default:
		return StatusDisconnected
	}
}

// Level is the ordered proficiency of a credential. The zero value is unknown
// and orders below LevelBeginner.
type Level int

const (
	LevelUnknown Level = iota
	LevelBeginner
	LevelIntermediate
	LevelAdvanced
	LevelProfessional
	LevelExpert
)

var levelNames = [...]string{
	LevelUnknown:      "",
	LevelBeginner:     "Beginner",
	LevelIntermediate: "Intermediate",
	LevelAdvanced:     "Advanced",
	LevelProfessional: "Professional",
	LevelExpert:       "Expert",
}

func (l Level) String() string {
	if l < LevelUnknown || int(l) >= len(levelNames) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name case-insensitively. Blank input yields
// LevelUnknown without error.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LevelUnknown, nil
	}
	for i, n := range levelNames {
		if i == int(LevelUnknown) {
			continue
		}
		if strings.EqualFold(n, s) {
			return Level(i), nil
		}
	}
	return LevelUnknown, fmt.Errorf("%w: unknown level %q", ErrInvalidArgument, s)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Credential is a skill badge held by a holder. Owned by a CredentialSource
// and treated as read-only here.
type Credential struct {
	ID       string `json:"id" yaml:"id"`
	SkillTag string `json:"skillTag" yaml:"skill"`
	Level    Level  `json:"level" yaml:"level"`
	Verified bool   `json:"verified" yaml:"verified"`
	TokenID  string `json:"tokenId,omitempty" yaml:"tokenId,omitempty"`
}

// EligibilityResult is recomputed on demand and never persisted.
type EligibilityResult struct {
	// RelevantCredentials keeps the input order of the holder's credentials.
	RelevantCredentials []Credential `json:"relevantCredentials"`
	CanReview           bool         `json:"canReview"`
}

// MarshalJSON keeps relevantCredentials as [] rather than null.
func (r EligibilityResult) MarshalJSON() ([]byte, error) {
	type alias EligibilityResult
	a := alias(r)
	if a.RelevantCredentials == nil {
		a.RelevantCredentials = []Credential{}
	}
	return json.Marshal(a)
}

// VerificationID identifies a completed reviewer check (UUIDv7 string).
type VerificationID string

// Verification records one reviewer eligibility check for a connected holder.
type Verification struct {
	ID             VerificationID    `json:"id"`
	Holder         string            `json:"holder"`
	ChainID        uint64            `json:"chainId,omitempty"`
	RequiredSkills []string          `json:"requiredSkills"`
	Result         EligibilityResult `json:"result"`
	CheckedAt      time.Time         `json:"checkedAt"`
}
