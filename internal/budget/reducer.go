package budget

import "codenav/internal/config"

// TruncationReason identifies why a response was cut short.
type TruncationReason string

const (
	// ReasonBudget means the estimated cost exceeded the response budget.
	ReasonBudget TruncationReason = "budget-exceeded"
	// ReasonHardCap means the absolute item ceiling was reached.
	ReasonHardCap TruncationReason = "hard-cap"
	// ReasonMaxRequested means the caller asked for fewer items than exist.
	ReasonMaxRequested TruncationReason = "max-requested"
	// ReasonNone means nothing was dropped.
	ReasonNone TruncationReason = ""
)

// Default bounds applied when a Config field is left at its zero value.
const (
	DefaultHardCap = 500
	DefaultBudget  = 2000
)

// DefaultSteps are the fallback sizes tried, in order, when the first
// candidate overruns the budget.
var DefaultSteps = []int{50, 40, 30, 20, 10}

// Config bounds the size of a single response.
type Config struct {
	HardCap  int   // absolute ceiling on returned items
	Budget   int   // token budget for the whole response
	BaseCost int   // fixed envelope overhead in tokens
	Steps    []int // descending sizes tried when over budget
}

// FromConfig builds a reducer Config from the project budget settings.
// Missing values fall back to the package defaults.
func FromConfig(bc config.BudgetConfig) Config {
	return Config{
		HardCap:  bc.HardCap,
		Budget:   bc.ResponseBudget,
		BaseCost: bc.BaseResponseCost,
		Steps:    bc.ReductionSteps,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.HardCap <= 0 {
		c.HardCap = DefaultHardCap
	}
	if c.Budget <= 0 {
		c.Budget = DefaultBudget
	}
	if c.BaseCost < 0 {
		c.BaseCost = 0
	}
	if len(c.Steps) == 0 {
		c.Steps = DefaultSteps
	}
	return c
}

// Decision describes how many items survive reduction.
type Decision struct {
	Returned      int
	Total         int
	EstimatedCost int
	Truncated     bool
	Reason        TruncationReason
}

// Dropped returns how many items the decision leaves out.
func (d Decision) Dropped() int {
	if d.Total < d.Returned {
		return 0
	}
	return d.Total - d.Returned
}

// Reduce picks how many of total items fit within cfg's budget. The first
// candidate is the smaller of requestedMax and the hard cap (requestedMax <= 0
// means unbounded). If that candidate's estimated cost overruns the budget,
// progressively smaller step sizes are tried; when even the smallest step is
// over budget it is returned anyway, so a non-empty source never reduces to
// zero items.
func Reduce(total, requestedMax int, cfg Config, perItem CostFunc) Decision {
	cfg = cfg.withDefaults()
	if total <= 0 {
		return Decision{EstimatedCost: cfg.BaseCost}
	}

	candidate := cfg.HardCap
	reason := ReasonHardCap
	if requestedMax > 0 && requestedMax < candidate {
		candidate = requestedMax
		reason = ReasonMaxRequested
	}
	if candidate >= total {
		candidate = total
		reason = ReasonNone
	}

	cost := Estimate(candidate, perItem, cfg.BaseCost)
	if cost <= cfg.Budget {
		return Decision{
			Returned:      candidate,
			Total:         total,
			EstimatedCost: cost,
			Truncated:     candidate < total,
			Reason:        reason,
		}
	}

	// Estimates are monotonic, so steps at or above the failed candidate
	// cannot fit either.
	smallest := candidate
	for _, step := range cfg.Steps {
		if step <= 0 || step >= candidate {
			continue
		}
		if step < smallest {
			smallest = step
		}
		c := Estimate(step, perItem, cfg.BaseCost)
		if c <= cfg.Budget {
			return Decision{
				Returned:      step,
				Total:         total,
				EstimatedCost: c,
				Truncated:     true,
				Reason:        ReasonBudget,
			}
		}
	}

	n := smallest
	if n < 1 {
		n = 1
	}
	d := Decision{
		Returned:      n,
		Total:         total,
		EstimatedCost: Estimate(n, perItem, cfg.BaseCost),
		Truncated:     n < total,
	}
	if d.Truncated {
		d.Reason = ReasonBudget
	}
	return d
}
