// Package catalog holds the immutable reference data: words, tiers and badges.
// A Catalog is built once and shared read-only for the process lifetime.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"vocab-tiers-service/internal/domain"
)

// Catalog indexes words, tiers and badges. All accessors return copies or
// read-only views; nothing mutates a Catalog after New.
type Catalog struct {
	words    []domain.Word
	byID     map[domain.WordID]int
	byTier   map[domain.TierID][]domain.WordID
	tiers    []domain.Tier
	tierByID map[domain.TierID]int
	badges   []domain.Badge
}

// Filter narrows a word listing. Zero values match everything.
type Filter struct {
	Tier     domain.TierID
	Category domain.Category
	Query    string
	IDs      domain.Set[domain.WordID]
}

// CategorySummary is the per-category rollup shown next to the filter chips.
type CategorySummary struct {
	ID        domain.Category `json:"id"`
	Name      string          `json:"name"`
	WordCount int             `json:"wordCount"`
	Tiers     []domain.TierID `json:"tiers"`
}

// New validates and indexes the reference data.
func New(words []domain.Word, tiers []domain.Tier, badges []domain.Badge) (*Catalog, error) {
	c := &Catalog{
		byID:     make(map[domain.WordID]int, len(words)),
		byTier:   make(map[domain.TierID][]domain.WordID),
		tierByID: make(map[domain.TierID]int, len(tiers)),
	}

	c.tiers = slices.Clone(tiers)
	slices.SortStableFunc(c.tiers, func(a, b domain.Tier) int { return int(a.ID) - int(b.ID) })
	for i, t := range c.tiers {
		if t.ID <= 0 {
			return nil, invalid("tier id %d must be positive", t.ID)
		}
		if _, dup := c.tierByID[t.ID]; dup {
			return nil, invalid("duplicate tier %d", t.ID)
		}
		c.tierByID[t.ID] = i
	}
	for _, t := range c.tiers {
		if err := c.validateTier(t); err != nil {
			return nil, err
		}
	}

	c.words = make([]domain.Word, 0, len(words))
	for _, w := range words {
		if w.ID == "" {
			return nil, invalid("word with empty id")
		}
		if _, dup := c.byID[w.ID]; dup {
			return nil, invalid("duplicate word %q", w.ID)
		}
		if w.Points <= 0 {
			return nil, invalid("word %q: points must be positive", w.ID)
		}
		if !w.Category.Valid() {
			return nil, invalid("word %q: unknown category %q", w.ID, w.Category)
		}
		if _, ok := c.tierByID[w.Tier]; !ok {
			return nil, invalid("word %q: unknown tier %d", w.ID, w.Tier)
		}
		w.Tags = slices.Clone(w.Tags)
		c.byID[w.ID] = len(c.words)
		c.words = append(c.words, w)
		c.byTier[w.Tier] = append(c.byTier[w.Tier], w.ID)
	}

	seen := make(map[domain.BadgeID]bool, len(badges))
	for _, b := range badges {
		if b.ID == "" || seen[b.ID] {
			return nil, invalid("badge id %q empty or duplicated", b.ID)
		}
		seen[b.ID] = true
	}
	c.badges = slices.Clone(badges)
	return c, nil
}

func (c *Catalog) validateTier(t domain.Tier) error {
	hasAck := false
	for _, req := range t.Requirements {
		switch req.Kind {
		case domain.RequireMinPoints:
			if req.MinPoints < 0 {
				return invalid("tier %d: negative point requirement", t.ID)
			}
		case domain.RequireTierCompleted:
			if _, ok := c.tierByID[req.Tier]; !ok {
				return invalid("tier %d: requires unknown tier %d", t.ID, req.Tier)
			}
			if req.Tier == t.ID {
				return invalid("tier %d: cannot require itself", t.ID)
			}
		case domain.RequireCulturalAcknowledgment:
			hasAck = true
		default:
			return invalid("tier %d: unknown requirement %q", t.ID, req.Kind)
		}
	}
	if hasAck != t.RequiresCulturalAcknowledgment {
		return invalid("tier %d: acknowledgment requirement does not match sensitivity flag", t.ID)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidCatalog, fmt.Sprintf(format, args...))
}

func (c *Catalog) Has(id domain.WordID) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *Catalog) Word(id domain.WordID) (domain.Word, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Word{}, false
	}
	return c.words[i], true
}

func (c *Catalog) Tier(id domain.TierID) (domain.Tier, bool) {
	i, ok := c.tierByID[id]
	if !ok {
		return domain.Tier{}, false
	}
	return c.tiers[i], true
}

// Tiers returns every tier in ascending id order.
func (c *Catalog) Tiers() []domain.Tier {
	return slices.Clone(c.tiers)
}

// TierWordIDs returns the ids of every word in tier id.
func (c *Catalog) TierWordIDs(id domain.TierID) []domain.WordID {
	return slices.Clone(c.byTier[id])
}

func (c *Catalog) WordsInTier(id domain.TierID) []domain.Word {
	return c.Words(Filter{Tier: id})
}

func (c *Catalog) Badges() []domain.Badge {
	return slices.Clone(c.badges)
}

// Document returns the catalog's data in its serializable form.
func (c *Catalog) Document() Document {
	return Document{
		Tiers:  c.Tiers(),
		Words:  slices.Clone(c.words),
		Badges: c.Badges(),
	}
}

// Len is the number of words.
func (c *Catalog) Len() int {
	return len(c.words)
}

// Words lists the words matching f in declaration order.
func (c *Catalog) Words(f Filter) []domain.Word {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(f.Query))

	out := make([]domain.Word, 0)
	for _, w := range c.words {
		if f.Tier != 0 && w.Tier != f.Tier {
			continue
		}
		if f.Category != "" && w.Category != f.Category {
			continue
		}
		if f.IDs != nil && !f.IDs.Has(w.ID) {
			continue
		}
		if query != "" && !matches(fold, w, query) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// matches reports whether the folded query appears in the Somali, English or
// phonetic text, or equals one of the word's tags.
func matches(fold cases.Caser, w domain.Word, query string) bool {
	for _, field := range []string{w.Somali, w.English, w.Phonetic} {
		if strings.Contains(fold.String(field), query) {
			return true
		}
	}
	for _, tag := range w.Tags {
		if fold.String(tag) == query {
			return true
		}
	}
	return false
}

// Categories summarizes word counts per category, skipping empty ones.
func (c *Catalog) Categories() []CategorySummary {
	out := make([]CategorySummary, 0, len(domain.Categories))
	for _, cat := range domain.Categories {
		summary := CategorySummary{ID: cat, Name: cat.Title(), Tiers: []domain.TierID{}}
		for _, w := range c.words {
			if w.Category != cat {
				continue
			}
			summary.WordCount++
			if !slices.Contains(summary.Tiers, w.Tier) {
				summary.Tiers = append(summary.Tiers, w.Tier)
			}
		}
		if summary.WordCount == 0 {
			continue
		}
		slices.Sort(summary.Tiers)
		out = append(out, summary)
	}
	return out
}
