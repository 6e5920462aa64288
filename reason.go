package llmgate

// Reason identifies the quota dimension that denied a request. The values
// match the strings produced by the admission script, so they can be
// returned to clients verbatim.
//
// Dimensions are checked in a fixed order: requests first, then input
// tokens, then output tokens. A request over several quotas at once is
// reported under the first exhausted one.
type Reason string

const (
	// ReasonAllowed marks an admitted request.
	ReasonAllowed Reason = "ALLOWED"

	// ReasonRPMExceeded means the requests-per-minute quota is exhausted.
	ReasonRPMExceeded Reason = "RPM_EXCEEDED"

	// ReasonInputTPMExceeded means the input-tokens-per-minute quota is exhausted.
	ReasonInputTPMExceeded Reason = "INPUT_TPM_EXCEEDED"

	// ReasonOutputTPMExceeded means the output-tokens-per-minute quota is exhausted.
	ReasonOutputTPMExceeded Reason = "OUTPUT_TPM_EXCEEDED"
)
