package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// publish and reindex run after commit; their failures are logged only.
func publish(ctx context.Context, p events.Publisher, topic, key, typ string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, key, events.NewEvent(typ, payload)); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "type", typ, "error", err)
	}
}

func reindex(ctx context.Context, r *repo.GormRepo, idx search.Index, ids []uint) {
	if idx == nil || len(ids) == 0 {
		return
	}
	l := logging.FromContext(ctx)

	products, err := r.GetProductsByIDs(ctx, ids)
	if err != nil {
		l.Warn("search_reindex_failed", "products", len(ids), "error", err)
		return
	}
	if err := idx.IndexProducts(ctx, products); err != nil {
		l.Warn("search_reindex_failed", "products", len(ids), "error", err)
	}
}

func unindex(ctx context.Context, idx search.Index, ids []uint) {
	if idx == nil || len(ids) == 0 {
		return
	}
	if err := idx.DeleteProducts(ctx, ids); err != nil {
		logging.FromContext(ctx).Warn("search_unindex_failed", "products", len(ids), "error", err)
	}
}

func key(id uint) string {
	return fmt.Sprintf("%d", id)
}

func validName(field, name string, min, max int) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < min || n > max {
		return "", fmt.Errorf("%s must be %d-%d characters: %w", field, min, max, ErrValidation)
	}
	return name, nil
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
