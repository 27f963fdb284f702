package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MCheckoutTransitions     MetricKey = "checkout_transitions_total"
	MCheckoutPollAttempts    MetricKey = "checkout_poll_attempts"
)

// PollAttemptBuckets covers the whole 1..30 attempt budget.
var PollAttemptBuckets = []float64{1, 2, 3, 5, 8, 13, 21, 30}
