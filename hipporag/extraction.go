package hipporag

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/Ctrl-Creeper/HippoRAG/embed"
	"github.com/Ctrl-Creeper/HippoRAG/storage"
)

const factExtractionPrompt = `Extract the key facts from the text below as (subject, predicate, object) triples.
List one triple per line and nothing else.

Text: %s

Facts:`

const strictFactExtractionPrompt = `Extract factual triples from the text below.
Respond with ONLY lines of the exact form (subject, predicate, object).
No commentary, no numbering, no blank lines between triples.

Text: %s

Facts:`

// ExtractFacts prompts the model for subject-predicate-object triples and
// parses its output into Fact records. A malformed response is retried
// once with a stricter instruction before ErrParse is surfaced. Parsed
// facts are upserted into the store best-effort.
func (m *Manager) ExtractFacts(ctx context.Context, text string) ([]Fact, error) {
	out, err := m.Generate(ctx, fmt.Sprintf(factExtractionPrompt, text), m.Config.MaxTokens)
	if err != nil {
		return nil, err
	}

	triples := parseTriples(out)
	if len(triples) == 0 {
		m.log.WithField("output", snippet(out, 120)).Debug("extraction output unparseable, retrying with strict prompt")

		out, err = m.Generate(ctx, fmt.Sprintf(strictFactExtractionPrompt, text), m.Config.MaxTokens)
		if err != nil {
			return nil, err
		}
		triples = parseTriples(out)
		if len(triples) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrParse, snippet(out, 120))
		}
	}

	facts := make([]Fact, 0, len(triples))
	for _, t := range triples {
		f := Fact{
			Subject:    t[0],
			Predicate:  t[1],
			Object:     t[2],
			Activation: 1.0, // fresh memories start fully activated
		}
		if id, err := m.storeFact(ctx, f); err != nil {
			m.log.WithError(err).Warn("failed to persist extracted fact")
		} else {
			f.ID = id
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// storeFact embeds and upserts a fact; returns 0 without error when no
// store is configured.
func (m *Manager) storeFact(ctx context.Context, f Fact) (int64, error) {
	repos, ok := m.repos()
	if !ok {
		return 0, nil
	}

	var encoded []byte
	if vec, err := m.Embedder.EmbedText(ctx, f.Subject+" "+f.Predicate+" "+f.Object); err == nil {
		encoded = embed.EncodeVector(vec)
	}

	return repos.Fact().Upsert(m.Config.Namespace, storage.FactUpsert{
		Subject:    f.Subject,
		Predicate:  f.Predicate,
		Object:     f.Object,
		Uncertain:  f.Uncertain,
		Embedding:  encoded,
		Activation: f.Activation,
		Uniq:       factUniq(f.Subject, f.Predicate, f.Object),
	})
}

// parseTriples extracts "(subject, predicate, object)" lines. The object
// may itself contain commas, so only the first two separators split.
func parseTriples(s string) [][3]string {
	var out [][3]string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		open := strings.Index(line, "(")
		closing := strings.LastIndex(line, ")")
		if open < 0 || closing <= open {
			continue
		}
		parts := strings.SplitN(line[open+1:closing], ",", 3)
		if len(parts) != 3 {
			continue
		}
		subject := strings.TrimSpace(parts[0])
		predicate := strings.TrimSpace(parts[1])
		object := strings.TrimSpace(parts[2])
		if subject == "" || predicate == "" || object == "" {
			continue
		}
		out = append(out, [3]string{subject, predicate, object})
	}
	return out
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// factUniq is the dedup key for a triple within a namespace.
func factUniq(subject, predicate, object string) string {
	h := sha256.Sum256([]byte(normalizeTerm(subject) + "|" + normalizeTerm(predicate) + "|" + normalizeTerm(object)))
	return fmt.Sprintf("%x", h[:])
}

func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max]
	}
	return s
}
