// Package admin builds a JSON management surface for tenant models from
// their declared admin metadata.
package admin

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/models"
)

// DefaultHeader is shown by admin clients when none is configured.
const DefaultHeader = "Equisy Developer's Admin"

// Site is the registry of model admins.
type Site struct {
	Header string

	mu      sync.RWMutex
	exempt  map[string]struct{}
	admins  map[string]*ModelAdmin
	order   []string
	perPage int
}

// NewSite creates a Site. exempt lists content types or model names that
// RegisterApp skips. perPage overrides the list page size when positive.
func NewSite(header string, perPage int, exempt []string) *Site {
	if header == "" {
		header = DefaultHeader
	}
	s := &Site{
		Header:  header,
		exempt:  make(map[string]struct{}, len(exempt)),
		admins:  make(map[string]*ModelAdmin),
		perPage: perPage,
	}
	for _, e := range exempt {
		s.exempt[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return s
}

// Register wraps model in a ModelAdmin. Registering the same model twice
// returns domain.ErrConflict.
func (s *Site) Register(model any) (*ModelAdmin, error) {
	ma, err := NewModelAdmin(model)
	if err != nil {
		return nil, err
	}
	if s.perPage > 0 {
		if _, set := ma.Meta[MetaListPerPage]; !set {
			ma.ListPerPage = s.perPage
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.admins[ma.ContentType]; dup {
		return nil, fmt.Errorf("admin.Register %s: %w", ma.Name, domain.ErrConflict)
	}
	s.admins[ma.ContentType] = ma
	s.order = append(s.order, ma.ContentType)

	log.Debug().Str("model", ma.Name).Int("actions", len(ma.Actions)).Msg("admin model registered")
	return ma, nil
}

// RegisterApp registers every model of app that is not exempt.
func (s *Site) RegisterApp(app *models.App) error {
	var errs []error
	for _, m := range app.Models() {
		if s.isExempt(m) {
			continue
		}
		if _, err := s.Register(m); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("admin.RegisterApp %s: %w", app.Label, errors.Join(errs...))
	}
	return nil
}

func (s *Site) isExempt(model any) bool {
	_, ok := s.exempt[models.ContentType(model)]
	return ok
}

// Lookup returns the admin registered for contentType.
func (s *Site) Lookup(contentType string) (*ModelAdmin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ma, ok := s.admins[strings.ToLower(contentType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, contentType)
	}
	return ma, nil
}

// Admins returns the registered admins in registration order.
func (s *Site) Admins() []*ModelAdmin {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ModelAdmin, 0, len(s.order))
	for _, ct := range s.order {
		out = append(out, s.admins[ct])
	}
	return out
}
