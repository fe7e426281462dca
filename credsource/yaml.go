package credsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flexigpt/skillchain-go/spec"
)

// file is the on-disk layout:
//
//	holders:
//	  "0xAbC...":
//	    - id: "1"
//	      skill: React
//	      level: Expert
//	      verified: true
//	      tokenId: "1337"
type file struct {
	Holders map[string][]spec.Credential `yaml:"holders"`
}

// LoadYAMLFile reads a credential file from disk.
func LoadYAMLFile(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := LoadYAML(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadYAML parses a credential document. Every credential needs an id and a
// skill; unknown fields are rejected.
func LoadYAML(r io.Reader) (*Static, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return NewStatic(nil), nil
		}
		return nil, errors.Join(spec.ErrInvalidArgument, err)
	}

	for holder, creds := range f.Holders {
		if strings.TrimSpace(holder) == "" {
			return nil, fmt.Errorf("%w: empty holder address", spec.ErrInvalidArgument)
		}
		for i, c := range creds {
			if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.SkillTag) == "" {
				return nil, fmt.Errorf(
					"%w: holder %s credential %d: id and skill are required",
					spec.ErrInvalidArgument,
					holder,
					i,
				)
			}
		}
	}
	return NewStatic(f.Holders), nil
}

// File re-reads a YAML credential file on every lookup so edits are picked up
// without a restart. Wrap it in Cached to bound the re-reads.
type File struct {
	path string
}

var _ spec.CredentialSource = (*File)(nil)

func NewFile(path string) *File { return &File{path: path} }

func (f *File) Credentials(ctx context.Context, holder string) ([]spec.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := LoadYAMLFile(f.path)
	if err != nil {
		return nil, err
	}
	return s.Credentials(ctx, holder)
}
