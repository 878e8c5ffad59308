// Package typeid generates and checks the prefixed ids handed out by the
// server for sessions, assets and exports.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixSession = "sess"
	PrefixAsset   = "asset"
	PrefixExport  = "exp"
)

// ErrInvalid is returned for an id that does not parse or has the wrong prefix.
var ErrInvalid = errors.New("invalid id")

func New(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

func NewSessionID() string { return New(PrefixSession) }
func NewAssetID() string   { return New(PrefixAsset) }
func NewExportID() string  { return New(PrefixExport) }

// Validate checks that id is a typeid carrying prefix.
func Validate(id, prefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalid, id, err)
	}
	if got := parsed.Prefix(); got != prefix {
		return fmt.Errorf("%w %q: want prefix %q, got %q", ErrInvalid, id, prefix, got)
	}
	return nil
}
