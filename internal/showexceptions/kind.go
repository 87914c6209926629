package showexceptions

import "go.opentelemetry.io/otel/attribute"

// Kind classifies where in the exchange a fault was observed.
type Kind string

const (
	// KindPreResponse is a fault before the handler responded.
	KindPreResponse Kind = "pre_response"
	// KindMidStream is a fault raised by the body stream.
	KindMidStream Kind = "mid_stream"
	// KindPostCommit is a panic after the handler responded.
	KindPostCommit Kind = "post_commit"
	// KindDropped is an event that arrived after the exchange was decided.
	KindDropped Kind = "dropped"
)

// AttrFaultKind labels the fault counter and span events.
var AttrFaultKind = attribute.Key("fault.kind")
