package hipporag

import (
	"context"
	"fmt"
	"strings"
)

const answerWithFactsPrompt = `Answer the question using the known facts below. If the facts do not
cover the question, say so and answer from general knowledge.

Known facts:
%s

Question: %s

Answer:`

const answerPlainPrompt = `Answer the question concisely.

Question: %s

Answer:`

// AnswerQuestion recalls facts relevant to the question, folds them into
// the prompt and generates an answer. Recall failure degrades to a plain
// answer rather than failing the call.
func (m *Manager) AnswerQuestion(ctx context.Context, question string) (string, error) {
	facts, err := m.Recall(ctx, question, m.Config.RecallLimit)
	if err != nil {
		m.log.WithError(err).Warn("recall failed, answering without memory")
		facts = nil
	}

	prompt := fmt.Sprintf(answerPlainPrompt, question)
	if len(facts) > 0 {
		var b strings.Builder
		for _, f := range facts {
			fmt.Fprintf(&b, "- %s %s %s\n", f.Subject, f.Predicate, f.Object)
		}
		prompt = fmt.Sprintf(answerWithFactsPrompt, strings.TrimRight(b.String(), "\n"), question)
	}

	return m.Generate(ctx, prompt, m.Config.MaxTokens)
}
