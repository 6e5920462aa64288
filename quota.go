package llmgate

import "fmt"

// Quota is the per-window allowance for one API key across all three
// dimensions. RPM must be positive. The token limits must not be negative;
// a zero token limit admits only requests carrying no tokens in that
// dimension, which makes Quota{RPM: n} usable for plain request limiting.
type Quota struct {
	// RPM is the maximum number of requests per window.
	RPM int64

	// InputTPM is the maximum number of input (prompt) tokens per window.
	InputTPM int64

	// OutputTPM is the maximum number of output (completion) tokens per window.
	OutputTPM int64
}

func (q Quota) validate() error {
	if q.RPM <= 0 {
		return fmt.Errorf("llmgate: quota RPM must be positive")
	}
	if q.InputTPM < 0 || q.OutputTPM < 0 {
		return fmt.Errorf("llmgate: quota token limits must not be negative")
	}
	return nil
}

// limitFor returns the quota value for the dimension named by reason.
// ReasonAllowed and ReasonRPMExceeded both map to RPM.
func (q Quota) limitFor(reason Reason) int64 {
	switch reason {
	case ReasonInputTPMExceeded:
		return q.InputTPM
	case ReasonOutputTPMExceeded:
		return q.OutputTPM
	default:
		return q.RPM
	}
}
