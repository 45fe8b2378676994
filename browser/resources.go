package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceFilter is the set of CDP resource types a tab refuses to load.
// Configuration accepts the plural names ("images", "fonts") as well as
// the CDP type names.
type resourceFilter map[proto.NetworkResourceType]bool

var resourceAliases = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"image":       proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"font":        proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
	"stylesheet":  proto.NetworkResourceTypeStylesheet,
	"ping":        proto.NetworkResourceTypePing,
	"manifest":    proto.NetworkResourceTypeManifest,
}

// newResourceFilter drops unknown names. The page cannot work without its
// documents, scripts and XHRs, so those are never blocked.
func newResourceFilter(names []string) resourceFilter {
	f := resourceFilter{}
	for _, n := range names {
		if t, ok := resourceAliases[strings.ToLower(strings.TrimSpace(n))]; ok {
			f[t] = true
		}
	}
	return f
}

func (f resourceFilter) blocks(t proto.NetworkResourceType) bool {
	return f[t]
}

// install hijacks every request of page; the returned router must be
// stopped with the tab.
func (f resourceFilter) install(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if f.blocks(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
