package scenario

import (
	"bytes"
	_ "embed"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/myrjola/sheerluck-engine/internal/models"
	"gopkg.in/yaml.v3"
)

// CanonicalCaseID is the fixed id of the quick-start case.
const CanonicalCaseID = "villa-sonnenhof"

//go:embed canonical.yaml
var canonicalYAML []byte

// QuickStart returns a fresh copy of the canonical pre-authored case. No backend is involved.
func QuickStart() (*models.Case, error) {
	var c models.Case
	decoder := yaml.NewDecoder(bytes.NewReader(canonicalYAML))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, errors.Wrap(err, "decode canonical case")
	}
	if err := Validate(&c); err != nil {
		return nil, errors.Wrap(err, "validate canonical case")
	}
	c.ID = CanonicalCaseID
	return &c, nil
}
