package skeleton

import (
	"log/slog"

	"github.com/aledsdavies/skelc/pkgs/registry"
)

// runtime bundles the handles execBody/execStmt need but that registry.Function's
// fixed signature (ctx, args) has no room for: the callable table a
// #block/#function body's block-dispatch statements still need when invoked
// indirectly through a call. The registry is long-lived (constructed once
// per host, pre-populated with defaults, and reused across renders), so
// capturing it in a #function/#block's registered closure at post-process
// time is sound — see DESIGN.md.
type runtime struct {
	reg *registry.Registry
	log *slog.Logger
}
