package envelope

import (
	"errors"
	"fmt"
	"time"

	naverrors "codenav/internal/errors"
)

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	resp *Response
}

// New creates a new envelope builder for the named tool.
func New(tool string) *Builder {
	return &Builder{
		resp: &Response{
			SchemaVersion: CurrentSchemaVersion,
			Success:       true,
			Meta:          &Meta{Tool: tool},
		},
	}
}

// Items sets a flat result list with its counts.
func (b *Builder) Items(items interface{}, totalFound, returned int) *Builder {
	b.resp.Items = items
	b.resp.TotalFound = totalFound
	b.resp.Returned = returned
	return b
}

// Tree sets a hierarchical result with its counts. Counts refer to the
// flattened distinct nodes, not tree depth.
func (b *Builder) Tree(root interface{}, totalFound, returned int) *Builder {
	b.resp.Tree = root
	b.resp.TotalFound = totalFound
	b.resp.Returned = returned
	return b
}

// Data sets an operational payload for tools that do not shape result lists.
func (b *Builder) Data(data interface{}) *Builder {
	b.resp.Data = data
	return b
}

// Message sets the human-readable summary line.
func (b *Builder) Message(msg string) *Builder {
	b.resp.Message = msg
	return b
}

// WithTruncation records the truncation outcome. Metadata is only attached
// when the result was actually truncated.
func (b *Builder) WithTruncation(truncated bool, shown, total int, reason string) *Builder {
	b.resp.Truncated = truncated
	if !truncated {
		return b
	}

	b.resp.Meta.Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
		Reason:      reason,
	}
	return b
}

// WithOverflow attaches the overflow reference for a truncated result and
// prepends the retrieval notice as the first advisory.
func (b *Builder) WithOverflow(id string, pageSize, pageCount int) *Builder {
	if id == "" {
		return b
	}
	b.resp.OverflowID = id
	b.resp.OverflowPages = pageCount

	notice := fmt.Sprintf(
		"full result stored as overflow %s: %d page(s) of up to %d items; retrieve with read_overflow_page",
		id, pageCount, pageSize)
	b.resp.Advisories = append([]string{notice}, b.resp.Advisories...)
	return b
}

// Advisory appends a human-readable advisory line.
func (b *Builder) Advisory(msg string) *Builder {
	b.resp.Advisories = append(b.resp.Advisories, msg)
	return b
}

// WithBudget records the cost accounting for the shaped response.
func (b *Builder) WithBudget(limit, estimatedCost int) *Builder {
	b.resp.Meta.Budget = &BudgetInfo{Limit: limit, EstimatedCost: estimatedCost}
	return b
}

// WithFreshness records which index answered this response.
func (b *Builder) WithFreshness(f *IndexFreshness) *Builder {
	if f == nil {
		return b
	}
	b.resp.Meta.Freshness = f
	return b
}

// WithElapsed records the handler wall time.
func (b *Builder) WithElapsed(d time.Duration) *Builder {
	b.resp.Meta.ElapsedMs = d.Milliseconds()
	return b
}

// Warning adds a warning message.
func (b *Builder) Warning(msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Message: msg})
	return b
}

// WarningWithCode adds a warning with a code.
func (b *Builder) WarningWithCode(code, msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: msg})
	return b
}

// SuggestCall adds a recommended follow-up tool call.
func (b *Builder) SuggestCall(tool string, params map[string]interface{}, reason string) *Builder {
	b.resp.SuggestedNextCalls = append(b.resp.SuggestedNextCalls, SuggestedCall{
		Tool:   tool,
		Params: params,
		Reason: reason,
	})
	return b
}

// Error marks the response failed. NavError codes and hints are surfaced;
// any other error maps to INTERNAL_ERROR.
func (b *Builder) Error(err error) *Builder {
	if err == nil {
		return b
	}

	b.resp.Success = false

	var navErr *naverrors.NavError
	if errors.As(err, &navErr) {
		b.resp.ErrorCode = string(navErr.Code)
		b.resp.Message = navErr.Message
		b.resp.Hints = navErr.Hints
		return b
	}

	b.resp.ErrorCode = string(naverrors.InternalError)
	b.resp.Message = err.Error()
	return b
}

// Build returns the completed response envelope.
func (b *Builder) Build() *Response {
	return b.resp
}

// Operational creates a simple success envelope for operational tools.
// These have no result counts, truncation or overflow concerns.
func Operational(tool string, data interface{}) *Response {
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Success:       true,
		Data:          data,
		Meta:          &Meta{Tool: tool},
	}
}
