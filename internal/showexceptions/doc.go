// Package showexceptions provides pipeline middleware that turns handler
// faults into diagnostic output for the client.
//
// A fault reported before the handler commits a response becomes a complete
// "500 Internal Server Error" HTML page. A fault raised by the body stream
// after the response started is rendered inline, appended to what was
// already written, and the stream is completed normally. A panic after the
// response was committed cannot be turned into a response any more and is
// passed to the outer Responder's Fail.
//
//	h := pipeline.Chain(app,
//	    showexceptions.New(
//	        showexceptions.WithLogger(showexceptions.NewSlogLogger(logger)),
//	        showexceptions.WithFaultCounter(metrics.FaultTotal),
//	    ),
//	)
//
// Whether a response has started is decided only by the handler's call to
// Respond, never by how many bytes reached the client.
package showexceptions
