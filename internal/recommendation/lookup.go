package recommendation

import (
	"context"

	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/textnorm"
)

// All returns every instance in stable order.
func (s *Store) All() []*models.RecommendedInstance {
	return s.filter(func(*models.RecommendedInstance) bool { return true })
}

// Len returns the number of stored instances.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ByName returns instances whose name equals name, ignoring case.
func (s *Store) ByName(name string) []*models.RecommendedInstance {
	return s.filter(func(ri *models.RecommendedInstance) bool {
		return textnorm.EqualFold(ri.Name(), name)
	})
}

// BySimilarName returns instances whose name is similar to name.
func (s *Store) BySimilarName(ctx context.Context, name string) []*models.RecommendedInstance {
	return s.filter(func(ri *models.RecommendedInstance) bool {
		return s.words.AreSimilar(ctx, ri.Name(), name)
	})
}

// ByType returns instances whose type equals typ, ignoring case.
func (s *Store) ByType(typ string) []*models.RecommendedInstance {
	return s.filter(func(ri *models.RecommendedInstance) bool {
		return textnorm.EqualFold(ri.Type(), typ)
	})
}

// BySimilarType returns instances whose type is similar to typ.
func (s *Store) BySimilarType(ctx context.Context, typ string) []*models.RecommendedInstance {
	return s.filter(func(ri *models.RecommendedInstance) bool {
		return s.words.AreSimilar(ctx, ri.Type(), typ)
	})
}

// ByMapping returns instances supported by m as a name or a type mention.
func (s *Store) ByMapping(m *models.Mention) []*models.RecommendedInstance {
	return s.filter(func(ri *models.RecommendedInstance) bool {
		return ri.HasNameMapping(m) || ri.HasTypeMapping(m)
	})
}

// ByNameMapping returns instances supported by m as a name mention.
func (s *Store) ByNameMapping(m *models.Mention) []*models.RecommendedInstance {
	return s.filter(func(ri *models.RecommendedInstance) bool {
		return ri.HasNameMapping(m)
	})
}

// ByTypeMapping returns instances supported by m as a type mention.
func (s *Store) ByTypeMapping(m *models.Mention) []*models.RecommendedInstance {
	return s.filter(func(ri *models.RecommendedInstance) bool {
		return ri.HasTypeMapping(m)
	})
}

func (s *Store) filter(keep func(*models.RecommendedInstance) bool) []*models.RecommendedInstance {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.RecommendedInstance
	for _, e := range s.entries {
		if keep(e.ri) {
			out = append(out, e.ri)
		}
	}
	return out
}
