package folia

import (
	"time"

	"github.com/google/uuid"
)

// Processor describes the software that adds annotations to a document,
// as recorded in FoLiA provenance data.
type Processor struct {
	ID      string
	Name    string
	Version string
	Type    string // "auto" or "manual"
	Begin   time.Time
	Host    string
	User    string
	Command string
}

// NewProcessor returns an automatic processor with a fresh identifier.
func NewProcessor(name, version string) Processor {
	return Processor{
		ID:      name + "." + uuid.NewString(),
		Name:    name,
		Version: version,
		Type:    "auto",
		Begin:   time.Now(),
	}
}

// attributes returns the processor attributes in output order.
func (p Processor) attributes() [][2]string {
	attrs := [][2]string{{"name", p.Name}}
	if p.Version != "" {
		attrs = append(attrs, [2]string{"version", p.Version})
	}
	if p.Type != "" {
		attrs = append(attrs, [2]string{"type", p.Type})
	}
	if !p.Begin.IsZero() {
		attrs = append(attrs, [2]string{"begindatetime", p.Begin.Format("2006-01-02T15:04:05")})
	}
	if p.Host != "" {
		attrs = append(attrs, [2]string{"host", p.Host})
	}
	if p.User != "" {
		attrs = append(attrs, [2]string{"user", p.User})
	}
	if p.Command != "" {
		attrs = append(attrs, [2]string{"command", p.Command})
	}
	return attrs
}
