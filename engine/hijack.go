package engine

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// fromProto maps a CDP resource type ("Image", "XHR") to a ResourceType.
func fromProto(t proto.NetworkResourceType) ResourceType {
	if t == "" {
		return ResourceOther
	}
	return ParseResourceType(string(t))
}

// mountHijack installs a request interceptor on the page that asks allow
// about every request and fails the rejected ones with BlockedByClient.
//
// The returned router is already running; the caller must Stop it.
func mountHijack(page *rod.Page, allow RequestPredicate) *rod.HijackRouter {
	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(h *rod.Hijack) {
		req := Request{
			URL:  h.Request.URL().String(),
			Type: fromProto(h.Request.Type()),
		}
		if !allow(req) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks until router.Stop().
	go router.Run()

	return router
}
