package keywords

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"StorylineScanner/internal/domain"
	"StorylineScanner/internal/ports"
)

const (
	generalTopN = 10
	peopleTopN  = 10
	stopWords   = "english"
)

// Engine extracts representative keywords for one storyline's concatenated
// text: a general keyphrase pass plus a pass restricted to the people named
// in the text, then team-alias filtering and containment dedup.
type Engine struct {
	tagger    ports.TextTagger
	extractor ports.KeyphraseExtractor
	aliases   map[int64]*regexp.Regexp
	log       *slog.Logger
}

// NewEngine wires the linguistic pipeline and the keyphrase scorer. aliases
// maps team ids to their self-reference patterns; a team with no entry gets
// no alias filtering.
func NewEngine(tagger ports.TextTagger, extractor ports.KeyphraseExtractor, aliases map[int64]*regexp.Regexp, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{tagger: tagger, extractor: extractor, aliases: aliases, log: log}
}

// ForCluster returns the filtered, deduplicated keywords of one cluster.
// An empty result is valid: some storylines yield no keywords at all.
func (e *Engine) ForCluster(ctx context.Context, teamID int64, text string) ([]domain.Keyword, error) {
	cleaned, err := e.cleanText(ctx, text)
	if err != nil {
		return nil, err
	}
	if cleaned == "" {
		return nil, nil
	}

	people, err := e.peopleIn(ctx, cleaned)
	if err != nil {
		return nil, err
	}

	merged, err := e.extractor.Extract(ctx, domain.KeyphraseRequest{
		Text:      cleaned,
		NgramMin:  1,
		NgramMax:  2,
		StopWords: stopWords,
		TopN:      generalTopN,
	})
	if err != nil {
		return nil, fmt.Errorf("general keyphrase pass: %w", err)
	}

	// No named people means the people pass contributes nothing; that is
	// not an error.
	if len(people) > 0 {
		peopleKws, err := e.extractor.Extract(ctx, domain.KeyphraseRequest{
			Text:       cleaned,
			NgramMin:   1,
			NgramMax:   3,
			Candidates: people,
			TopN:       peopleTopN,
		})
		if err != nil {
			return nil, fmt.Errorf("people keyphrase pass: %w", err)
		}
		merged = append(merged, peopleKws...)
	}

	final := FilterAndDedup(merged, e.aliases[teamID])
	e.log.Debug("extracted cluster keywords", "team_id", teamID, "people", len(people), "keywords", len(final))
	return final, nil
}

// cleanText lemmatizes the text and drops purely numeric tokens.
func (e *Engine) cleanText(ctx context.Context, text string) (string, error) {
	tokens, err := e.tagger.Tag(ctx, text)
	if err != nil {
		return "", fmt.Errorf("tag cluster text: %w", err)
	}

	lemmas := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Numeric || tok.Lemma == "" {
			continue
		}
		lemmas = append(lemmas, tok.Lemma)
	}
	return strings.Join(lemmas, " "), nil
}

// peopleIn returns the lowercased, deduplicated PERSON entities of a text.
func (e *Engine) peopleIn(ctx context.Context, text string) ([]string, error) {
	entities, err := e.tagger.Entities(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}

	seen := make(map[string]bool)
	var people []string
	for _, ent := range entities {
		if ent.Label != domain.EntityPerson {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(ent.Text))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		people = append(people, name)
	}
	return people, nil
}

// FilterAndDedup drops keywords matching the team's alias pattern, then
// deduplicates by substring containment: candidates are ordered by
// character length descending (score descending on ties) and a keyword is
// kept only if no already kept keyword contains it or is contained by it,
// case-insensitively. Longer, more specific phrases absorb shorter ones.
func FilterAndDedup(keywords []domain.Keyword, alias *regexp.Regexp) []domain.Keyword {
	filtered := make([]domain.Keyword, 0, len(keywords))
	for _, kw := range keywords {
		if alias != nil && alias.MatchString(kw.Text) {
			continue
		}
		filtered = append(filtered, kw)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if len(filtered[i].Text) != len(filtered[j].Text) {
			return len(filtered[i].Text) > len(filtered[j].Text)
		}
		return filtered[i].Score > filtered[j].Score
	})

	var unique []domain.Keyword
	for _, kw := range filtered {
		lower := strings.ToLower(kw.Text)
		absorbed := false
		for _, kept := range unique {
			keptLower := strings.ToLower(kept.Text)
			if strings.Contains(keptLower, lower) || strings.Contains(lower, keptLower) {
				absorbed = true
				break
			}
		}
		if !absorbed {
			unique = append(unique, kw)
		}
	}
	return unique
}
