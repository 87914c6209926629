package handlers_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jsamuelsen11/showexceptions/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
	"github.com/jsamuelsen11/showexceptions/internal/pipeline/pipelinetest"
)

// --- Demo application tests ---

func TestHello(t *testing.T) {
	t.Parallel()

	res := pipelinetest.Call(t, handlers.Hello(), "/")

	if res.Status != "200 OK" {
		t.Errorf("Status = %q, want %q", res.Status, "200 OK")
	}
	if !strings.HasPrefix(res.BodyText, "Hello") {
		t.Errorf("BodyText = %q, want a greeting", res.BodyText)
	}
	if !res.Completed {
		t.Error("body did not complete")
	}
}

func TestFault_FailsWithApplicationError(t *testing.T) {
	t.Parallel()

	res := pipelinetest.Call(t, handlers.Fault(), "/fault")

	var appErr *handlers.ApplicationError
	if !errors.As(res.Err, &appErr) {
		t.Fatalf("Err = %v, want *ApplicationError", res.Err)
	}
	if appErr.Message != handlers.MsgKaboom {
		t.Errorf("Message = %q, want %q", appErr.Message, handlers.MsgKaboom)
	}
	if res.Responds != 0 {
		t.Errorf("Responds = %d, want 0", res.Responds)
	}
}

func TestPanic_PanicsBeforeResponding(t *testing.T) {
	t.Parallel()

	defer func() {
		v := recover()
		appErr, ok := v.(*handlers.ApplicationError)
		if !ok {
			t.Fatalf("recovered %v, want *ApplicationError", v)
		}
		if appErr.Message != handlers.MsgKaboom {
			t.Errorf("Message = %q, want %q", appErr.Message, handlers.MsgKaboom)
		}
	}()

	handlers.Panic().Serve(pipeline.NewEnvironment("/panic"), pipeline.ResponderFuncs{
		OnRespond: func(pipeline.Response) { t.Error("Respond called") },
	})
}

func TestStreamFault_WritesThenFails(t *testing.T) {
	t.Parallel()

	for _, async := range []bool{false, true} {
		var opts []pipelinetest.Option
		if async {
			opts = append(opts, pipelinetest.WithAsyncConsumer())
		}

		res := pipelinetest.Call(t, handlers.StreamFault(), "/stream-fault", opts...)

		if res.Status != "200 OK" {
			t.Errorf("async=%v: Status = %q, want %q", async, res.Status, "200 OK")
		}
		if res.BodyText != handlers.MsgSoFarSoGood {
			t.Errorf("async=%v: BodyText = %q, want %q", async, res.BodyText, handlers.MsgSoFarSoGood)
		}
		var appErr *handlers.ApplicationError
		if !errors.As(res.BodyErr, &appErr) || appErr.Message != handlers.MsgFailedSendingBody {
			t.Errorf("async=%v: BodyErr = %v, want %q", async, res.BodyErr, handlers.MsgFailedSendingBody)
		}
	}
}

func TestLatePanic_PanicsAfterResponding(t *testing.T) {
	t.Parallel()

	responded := false
	func() {
		defer func() {
			if v := recover(); v == nil {
				t.Error("LatePanic did not panic")
			}
		}()
		handlers.LatePanic().Serve(pipeline.NewEnvironment("/late-panic"), pipeline.ResponderFuncs{
			OnRespond: func(pipeline.Response) { responded = true },
		})
	}()

	if !responded {
		t.Error("LatePanic panicked before responding")
	}
}

func TestStall_NeverAnswers(t *testing.T) {
	t.Parallel()

	answered := false
	handlers.Stall().Serve(pipeline.NewEnvironment("/slow"), pipeline.ResponderFuncs{
		OnRespond: func(pipeline.Response) { answered = true },
		OnFail:    func(error) { answered = true },
	})

	if answered {
		t.Error("Stall answered")
	}
}

// --- ShowEnvironment tests ---

func TestShowEnvironment_RendersXML(t *testing.T) {
	t.Parallel()

	res := pipelinetest.Call(t, handlers.ShowEnvironment(), "/env",
		pipelinetest.WithEnv(pipeline.KeyQueryString, "a=1&b=<2>"),
		pipelinetest.WithEnv(pipeline.KeyHeaders, pipeline.Headers{"Accept": "*/*", "X-Trace": "abc"}),
	)

	if got := res.Headers.Get(pipeline.ContentType); got != "text/xml" {
		t.Errorf("Content-Type = %q, want %q", got, "text/xml")
	}
	if res.BodyXML == nil {
		t.Fatalf("BodyXML = nil, err = %v", res.BodyXMLErr)
	}

	root := res.BodyXML
	if root.Name() != "xml" {
		t.Errorf("root element = %q, want %q", root.Name(), "xml")
	}

	entry := func(key string) string {
		t.Helper()
		n, ok := root.Child(key)
		if !ok {
			t.Errorf("%s missing", key)
		}
		return n.Text
	}
	if got := entry(pipeline.KeyPath); got != "/env" {
		t.Errorf("%s = %q, want %q", pipeline.KeyPath, got, "/env")
	}
	if got := entry(pipeline.KeyVersion); got != pipeline.Version {
		t.Errorf("%s = %q, want %q", pipeline.KeyVersion, got, pipeline.Version)
	}
	if got := entry(pipeline.KeyQueryString); got != "a=1&b=<2>" {
		t.Errorf("%s = %q, want it escaped and round-tripped", pipeline.KeyQueryString, got)
	}

	headers, _ := root.Child(pipeline.KeyHeaders)
	if len(headers.Children) != 2 ||
		headers.Children[0].Attr("name") != "Accept" || headers.Children[0].Text != "*/*" ||
		headers.Children[1].Attr("name") != "X-Trace" || headers.Children[1].Text != "abc" {
		t.Errorf("headers = %+v, want Accept and X-Trace in order", headers.Children)
	}
	if _, ok := root.Child(pipeline.KeyContext); ok {
		t.Errorf("%s rendered, want it omitted", pipeline.KeyContext)
	}
}

func TestShowEnvironment_SortedKeys(t *testing.T) {
	t.Parallel()

	res := pipelinetest.Call(t, handlers.ShowEnvironment(), "/env")

	body := res.BodyText
	method := strings.Index(body, "<"+pipeline.KeyMethod+">")
	path := strings.Index(body, "<"+pipeline.KeyPath+">")
	if method < 0 || path < 0 || method > path {
		t.Errorf("keys not sorted in body:\n%s", body)
	}
}
