package ops

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/amigazen/insight/internal/alert"
	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/errors"
	"github.com/amigazen/insight/internal/kb"
	"github.com/amigazen/insight/internal/metrics"
)

// UnknownDescription is shown in place of a description for codes the
// knowledge base does not contain.
const UnknownDescription = "Unknown Error"

// DecodeInput contains parameters for the Decode operation.
type DecodeInput struct {
	Code   string // 8 hex digits, optional 0x prefix
	Source string // db.Source*; defaults to "cli"
}

// DecodeOutput is a decoded alert.
type DecodeOutput struct {
	Code        alert.Code `json:"-"`
	CodeHex     string     `json:"code"`
	Found       bool       `json:"found"`
	Description string     `json:"description"`
	Hint        string     `json:"hint"`
	Fatal       bool       `json:"fatal"`
	Severity    string     `json:"severity"`
	Subsystem   string     `json:"subsystem"`
	General     string     `json:"general,omitempty"`
	Specific    string     `json:"specific"`
	Group       string     `json:"group,omitempty"`
}

// Decode parses input.Code and looks it up. An unknown code returns a
// NOT_FOUND error; callers decide how to present it.
func Decode(ctx context.Context, env *Env, input DecodeInput) (*DecodeOutput, error) {
	source := input.Source
	if source == "" {
		source = db.SourceCLI
	}

	code, err := alert.Parse(input.Code)
	if err != nil {
		env.Metrics.RecordLookup(metrics.OutcomeInvalid, source)
		return nil, err
	}
	return decodeCode(ctx, env, code, source)
}

// decodeCode looks code up, copies what it needs out of the result and
// releases it before returning.
func decodeCode(ctx context.Context, env *Env, code alert.Code, source string) (*DecodeOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("decode")
	}

	r, err := env.KB.Lookup(code)
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrNotFound):
			env.Metrics.RecordLookup(metrics.OutcomeNotFound, source)
			recordLookup(ctx, env, code, nil, source)
		case errors.Is(err, errors.ErrAllocationFailure):
			env.Metrics.RecordLookup(metrics.OutcomeAllocation, source)
			env.logger().Warn("lookup budget exhausted",
				zap.Stringer("code", code),
				zap.Int64("live_results", env.KB.Live()),
				zap.Int64("live_hint_bytes", env.KB.LiveHintBytes()))
		}
		return nil, err
	}
	defer r.Release()

	out := describe(code, r)
	env.Metrics.RecordLookup(metrics.OutcomeFound, source)
	recordLookup(ctx, env, code, r, source)
	env.logger().Debug("decoded alert", zap.Stringer("code", code), zap.String("source", source))
	return out, nil
}

// UnknownOutput describes a well-formed code that has no knowledge base
// entry. The code's own fields are still decoded.
func UnknownOutput(code alert.Code) *DecodeOutput {
	return &DecodeOutput{
		Code:        code,
		CodeHex:     code.String(),
		Description: UnknownDescription,
		Fatal:       code.IsFatal(),
		Severity:    code.Severity(),
		Subsystem:   code.Subsystem().Name(),
		General:     code.General().Name(),
		Specific:    fmt.Sprintf("0x%04X", code.Specific()),
	}
}

func describe(code alert.Code, r *kb.Result) *DecodeOutput {
	return &DecodeOutput{
		Code:        code,
		CodeHex:     code.String(),
		Found:       true,
		Description: r.Description(),
		Hint:        r.Hint(),
		Fatal:       code.IsFatal(),
		Severity:    code.Severity(),
		Subsystem:   code.Subsystem().Name(),
		General:     code.General().Name(),
		Specific:    fmt.Sprintf("0x%04X", code.Specific()),
		Group:       r.Group(),
	}
}

// recordLookup writes a history row. Failures are logged, never returned:
// history must not turn a successful decode into an error.
func recordLookup(ctx context.Context, env *Env, code alert.Code, r *kb.Result, source string) {
	if !env.historyEnabled() {
		return
	}
	id, err := generateULID()
	if err != nil {
		env.logger().Warn("failed to generate history id", zap.Error(err))
		return
	}

	rec := &db.LookupRecord{
		ID:        id,
		Code:      code,
		Source:    source,
		CreatedAt: time.Now().Unix(),
	}
	if r != nil {
		rec.Found = true
		rec.Description = r.Description()
	}
	if err := db.InsertLookup(ctx, env.DB, rec); err != nil {
		env.logger().Warn("failed to record lookup", zap.Stringer("code", code), zap.Error(err))
	}
}
