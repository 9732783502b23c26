package ops

import "github.com/amigazen/insight/internal/kb"

// Lint reports data-quality problems in the loaded knowledge base.
func Lint(env *Env) *kb.LintResult {
	return kb.Lint(env.KB)
}
