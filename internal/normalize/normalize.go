// Package normalize flattens Battle.net API documents into stored records.
// Each function handles one upstream shape; callers fetch the documents.
package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/armory/internal/models"
)

// ValidationError reports an upstream document missing a required part.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MediaResolver follows media links to their asset lists.
type MediaResolver interface {
	Media(ctx context.Context, href string) (*models.MediaResponse, error)
}

// RGBAToHex renders a colour as #rrggbb, or #rrggbbaa when translucent.
func RGBAToHex(c models.RGBA) string {
	if c.A >= 1 {
		return fmt.Sprintf("#%02x%02x%02x", clampByte(c.R), clampByte(c.G), clampByte(c.B))
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", clampByte(c.R), clampByte(c.G), clampByte(c.B), clampByte(int(c.A*255+0.5)))
}

func clampByte(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return v
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nameOf(ref *models.NamedRef) *string {
	if ref == nil {
		return nil
	}
	return strPtr(ref.Name)
}

// slotKey maps an upstream slot type ("FINGER_1") to a record key ("finger_1").
func slotKey(slotType string) string {
	return strings.ToLower(slotType)
}
